// Package manifest discovers, loads, and plans comtrya manifests.
//
// A manifest is a YAML file holding an ordered list of actions:
//
//	where: os.name == "linux"
//	actions:
//	  - action: command.run
//	    command: apt-get
//	    args: [update]
//	    privileged: true
//	  - action: cmd.run
//	    shell: echo "hello world"
//
// Both the manifest and each action may carry a `where` CEL condition,
// evaluated against the detected contexts (see [github.com/macropower/comtrya/pkg/expr]).
// Actions whose condition is false produce no atoms.
package manifest
