/*

Process of compilation

Syntax Document (yaml) ->
	front ->
Abstract Syntax Tree (ast) ->
	check ->
Typed AST + Diagnostics (diag) ->
	lower ->
Control-Flow Graphs (ir) ->
	back ->
Assembly Text (x86-64, AT&T) ->
	as, ld ->
Binary Executable

Reference executors

Control-Flow Graphs (ir) ->
	eval
Assembly Text ->
	asm.Parse ->
Assembly Program (asm) ->
	amd64

*/
package compiler
