// cmd/hula is the command-line entry point for HulaScript: run a script
// file, start the interactive REPL, check syntax without running, or print
// version information. Grounded on the teacher's cmd/sentra/main.go
// alias-dispatch shape, trimmed to the operations an embedder of this
// language actually needs -- no project scaffolding, package registry, or
// register-VM toggle, since none of those exist here.
package main

import (
	"fmt"
	"log"
	"os"

	"hulascript/internal/instance"
	"hulascript/internal/repl"
	"hulascript/internal/stdlib/crypto"
	"hulascript/internal/stdlib/db"
	"hulascript/internal/stdlib/fmtutil"
	"hulascript/internal/stdlib/idgen"
	"hulascript/internal/stdlib/netw"

	"hulascript/internal/objects"
)

const version = "0.1.0"

var commandAliases = map[string]string{
	"r": "run",
	"i": "repl",
	"c": "check",
	"v": "version",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		return
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Printf("hula %s\n", version)
	case "run":
		if len(args) < 2 {
			log.Fatal("run requires a filename")
		}
		runFile(args[1])
	case "repl":
		in := newInstance()
		repl.Run(in, os.Stdin, os.Stdout)
	case "check":
		if len(args) < 2 {
			log.Fatal("check requires a filename")
		}
		checkFile(args[1])
	default:
		fmt.Fprintf(os.Stderr, "hula: unknown command %q\n", cmd)
		showUsage()
		os.Exit(1)
	}
}

// newInstance builds an Instance and wires every stdlib/domain-object
// registrar onto it. A registrar returning false means maxGlobals was
// reached before all its names were declared (a name that is already
// bound counts as declared) -- fatal, since the embedder contract
// promises these names are always available.
func newInstance() *instance.Instance {
	in := instance.New()

	registrars := []struct {
		name string
		fn   func(*instance.Instance) bool
	}{
		{"db", db.Register},
		{"netw", netw.Register},
		{"crypto", crypto.Register},
		{"fmtutil", fmtutil.Register},
		{"idgen", idgen.Register},
		{"objects.matrix", objects.RegisterMatrix},
		{"objects.rational", objects.RegisterRational},
	}
	for _, r := range registrars {
		if !r.fn(in) {
			log.Fatalf("hula: failed to register stdlib package %q", r.name)
		}
	}
	return in
}

func runFile(filename string) {
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("hula: could not read %s: %v", filename, err)
	}

	in := newInstance()
	result, err := in.Run(string(source), filename, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if len(result.Warnings) > 0 {
		for _, w := range result.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", w.Message)
		}
		result, err = in.RunLoaded()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	}
	if result.HasValue {
		fmt.Println(in.GetValuePrintString(result.Value))
	}
}

func checkFile(filename string) {
	source, err := os.ReadFile(filename)
	if err != nil {
		log.Fatalf("hula: could not read %s: %v", filename, err)
	}

	// A fresh instance's compiler alone is enough: check validates syntax
	// and static structure without ever handing control to the VM.
	in := instance.New()
	if _, err := in.Compiler.CompileTopLevel(string(source), filename); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("%s: syntax is valid\n", filename)
}

func showUsage() {
	fmt.Println("hula - HulaScript interpreter")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hula run <file.hula>     Run a script                 (alias: r)")
	fmt.Println("  hula repl                Start the interactive REPL   (alias: i)")
	fmt.Println("  hula check <file.hula>   Check syntax without running (alias: c)")
	fmt.Println("  hula version             Show version                 (alias: v)")
}
