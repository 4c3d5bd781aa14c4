// Package expr evaluates CEL (Common Expression Language) conditions against
// detected host contexts.
//
// Expressions have access to one map variable per context provider:
//   - `user` (map): username, uid, gid, home_dir, superuser
//   - `os` (map): name, arch, family, hostname
//   - `env` (map): the process environment
//   - `variables` (map): user-defined configuration variables
//
// Additional functions:
//   - pathExists(string): true if the path exists
//   - commandExists(string): true if the executable is found in $PATH
//   - pathBase(string), pathDir(string), pathExt(string)
package expr
