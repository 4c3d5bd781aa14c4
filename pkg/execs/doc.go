// Package execs runs external processes on behalf of atoms.
//
// An [Executor] spawns a [Command] either with its output streams captured
// in memory ([Executor.Exec]) or attached to caller-supplied streams
// ([Executor.Attach]), which is how interactive tools such as sudo reach the
// controlling terminal. Captured output is kept as raw bytes and turned into
// text with [Decode].
package execs
