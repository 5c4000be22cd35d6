// Package script renders a compiled [compiler.Program] as a shell script.
//
// The script defines a single function, [FunctionName], which takes the guest
// root directory as its only argument. The function body runs the pre phase,
// extracts the content archive from the script's own directory, and then runs
// the post phase. The MACRO_RO, MACRO_RW and MACRO_MKDIR primitives are
// provided by the boot script that sources the output.
package script
