package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/score"
	"github.com/agenthands/nsound/pkg/sound"
	"github.com/agenthands/nsound/pkg/stdlib"
	"github.com/agenthands/nsound/pkg/vm"
)

const (
	maxOutputSize = 256 << 20
	soundExt      = ".snd"
)

var verbose bool

const usage = `Usage: nsound <command> [flags] <file>

Commands:
  compile  compile a sound program and print it as an embeddable string
  disasm   print the bytecode of a sound program
  render   render one note of a sound program to a WAV file
  score    compile a score and render it to a WAV file
  repl     compile sound programs interactively
`

func main() {
	log.SetFlags(0)
	log.SetPrefix("nsound: ")

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "compile":
		runCompile(args)
	case "disasm":
		runDisasm(args)
	case "render":
		runRender(args)
	case "score":
		runScore(args)
	case "repl":
		os.Exit(runRepl(args))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s", os.Args[1], usage)
		os.Exit(1)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.BoolVar(&verbose, "v", false, "verbose output")
	return fs
}

// input parses flags and returns the single positional file argument.
func input(fs *flag.FlagSet, args []string) string {
	fs.Parse(args)
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: nsound %s [flags] <file>\n", fs.Name())
		fs.PrintDefaults()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func debugf(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

// fatal reports err and exits. Source errors are shown with a file
// position; anything else is an internal fault, with its stack in
// verbose mode.
func fatal(path string, src []byte, err error) {
	var se sound.SourceError
	switch {
	case src != nil && errors.As(err, &se):
		log.Fatalf("%s:%s", path, se.Locate(src))
	case verbose:
		log.Fatalf("%+v", err)
	default:
		log.Fatal(err)
	}
}

func readSource(path string) []byte {
	src, err := os.ReadFile(path)
	if err != nil {
		log.Fatal(err)
	}
	return src
}

func compileFile(path string) []byte {
	src := readSource(path)
	code, err := sound.Compile(src)
	if err != nil {
		fatal(path, src, err)
	}
	debugf("%s: %d bytes of bytecode", path, len(code))
	return code
}

func runCompile(args []string) {
	fs := newFlagSet("compile")
	out := fs.String("o", "", "write the encoded program to this file instead of stdout")
	root := fs.String("root", ".", "output directory")
	path := input(fs, args)

	text, err := sound.Encode(compileFile(path))
	if err != nil {
		fatal(path, nil, err)
	}
	if *out == "" {
		fmt.Println(text)
		return
	}
	sandbox := newSandbox(*root)
	if err := sandbox.WriteFile(*out, []byte(text)); err != nil {
		fatal(*out, nil, err)
	}
	debugf("wrote %s", filepath.Join(sandbox.Root, *out))
}

func runDisasm(args []string) {
	fs := newFlagSet("disasm")
	path := input(fs, args)
	text, err := sound.Disassemble(compileFile(path))
	if err != nil {
		fatal(path, nil, err)
	}
	fmt.Print(text)
}

func runRender(args []string) {
	fs := newFlagSet("render")
	note := fs.Float64("note", 48, "note number, 48 is middle C")
	gate := fs.Float64("gate", 0.5, "gate time in seconds")
	rate := fs.Int("rate", vm.DefaultSampleRate, "sample rate")
	out := fs.String("o", "", "output WAV file (default: input name with .wav)")
	root := fs.String("root", ".", "output directory")
	path := input(fs, args)

	code := compileFile(path)
	samples, err := sound.Renderer{SampleRate: float64(*rate)}.Render(code, *note, *gate)
	if err != nil {
		fatal(path, nil, err)
	}
	debugf("%s: %d samples", path, len(samples))
	writeWAV(*root, wavName(*out, path), samples, *rate)
}

func runScore(args []string) {
	fs := newFlagSet("score")
	sounds := fs.String("sounds", ".", "directory holding <name>"+soundExt+" sound programs")
	rate := fs.Int("rate", vm.DefaultSampleRate, "sample rate")
	disasm := fs.Bool("disasm", false, "print the compiled score instead of rendering it")
	out := fs.String("o", "", "output WAV file (default: input name with .wav)")
	root := fs.String("root", ".", "output directory")
	path := input(fs, args)

	src := readSource(path)
	s, err := score.ParseScore(src)
	if err != nil {
		fatal(path, src, err)
	}
	prog, err := s.Emit()
	if err != nil {
		fatal(path, src, err)
	}
	if *disasm {
		text, err := score.Disassemble(prog)
		if err != nil {
			fatal(path, nil, err)
		}
		fmt.Print(text)
		return
	}

	lib := newSandbox(*sounds)
	programs := make(map[string][]byte, len(prog.Sounds))
	for _, name := range prog.Sounds {
		file := name + soundExt
		src, err := lib.ReadFile(file)
		if err != nil {
			fatal(file, nil, err)
		}
		code, err := sound.Compile(src)
		if err != nil {
			fatal(filepath.Join(*sounds, file), src, err)
		}
		programs[name] = code
	}

	samples, err := score.Render(prog, programs, score.Options{SampleRate: float64(*rate)})
	if err != nil {
		fatal(path, nil, err)
	}
	debugf("%s: %.2fs", path, float64(len(samples))/float64(*rate))
	writeWAV(*root, wavName(*out, path), samples, *rate)
}

func newSandbox(root string) *stdlib.FSSandbox {
	s, err := stdlib.NewFSSandbox(root, maxOutputSize)
	if err != nil {
		log.Fatal(err)
	}
	return s
}

func wavName(out, input string) string {
	if out != "" {
		return out
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".wav"
}

func writeWAV(root, name string, samples []float32, rate int) {
	sandbox := newSandbox(root)
	if err := sandbox.WriteWAV(name, samples, rate); err != nil {
		fatal(name, nil, err)
	}
	debugf("wrote %s", filepath.Join(sandbox.Root, name))
}
