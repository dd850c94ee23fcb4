package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/agenthands/nsound/pkg/compiler/parser"
	"github.com/agenthands/nsound/pkg/sound"
	"github.com/agenthands/nsound/pkg/vm"
)

const (
	historyFile = ".nsound_history"
	promptMain  = "snd> "
	promptCont  = "...  "
)

const replHelp = `Enter a sound program to see its bytecode and rendered length.
  :note N   set the note number used for rendering (default 48)
  :gate S   set the gate time in seconds (default 0.5)
  :quit     exit
`

func runRepl(args []string) int {
	fs := newFlagSet("repl")
	fs.Parse(args)

	fmt.Println("nsound REPL. Ctrl+D exits, :help lists commands.")

	var histPath string
	if home, err := homedir.Dir(); err == nil {
		histPath = filepath.Join(home, historyFile)
	}

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if histPath != "" {
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()
	}

	note, gate := 48.0, 0.5
	for {
		src, ok := readProgram(ln)
		if !ok {
			fmt.Println()
			return 0
		}
		src = strings.TrimSpace(src)
		if src == "" {
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(src, "\n", " "))

		if strings.HasPrefix(src, ":") {
			fields := strings.Fields(src)
			switch fields[0] {
			case ":quit":
				return 0
			case ":help":
				fmt.Print(replHelp)
			case ":note", ":gate":
				if len(fields) != 2 {
					fmt.Fprintf(os.Stderr, "usage: %s <number>\n", fields[0])
					continue
				}
				x, err := strconv.ParseFloat(fields[1], 64)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					continue
				}
				if fields[0] == ":note" {
					note = x
				} else {
					gate = x
				}
			default:
				fmt.Fprintln(os.Stderr, "unknown command, :help lists commands")
			}
			continue
		}

		if err := describe([]byte(src), note, gate); err != nil {
			fmt.Fprintln(os.Stderr, sound.Describe(err, []byte(src)))
		}
	}
}

// describe compiles src and prints its bytecode, encoding and length.
func describe(src []byte, note, gate float64) error {
	code, err := sound.Compile(src)
	if err != nil {
		return err
	}
	text, err := sound.Disassemble(code)
	if err != nil {
		return err
	}
	enc, err := sound.Encode(code)
	if err != nil {
		return err
	}
	out, err := sound.Render(code, note, gate)
	if err != nil {
		return errors.Wrap(err, "render")
	}
	fmt.Print(text)
	fmt.Printf("; %d bytes %q\n; %d samples, %.3fs\n", len(code), enc, len(out), float64(len(out))/vm.DefaultSampleRate)
	return nil
}

// readProgram reads lines until they form a program with no open lists.
func readProgram(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input.
			return "", true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, err := parser.Parse([]byte(src)); !parser.IsIncomplete(err) {
			return src, true
		}
	}
}
