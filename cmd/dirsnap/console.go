package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// progress renders scan and archive counters on one line. On a terminal the
// line is rewritten in place, otherwise only the final state is printed.
type progress struct {
	w    io.Writer
	tty  bool
	last string
}

func newProgress(w io.Writer) *progress {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	return &progress{w: w, tty: tty}
}

func (p *progress) scan(dirs, files int) {
	p.show(fmt.Sprintf("scanning: %d directories, %d files", dirs, files))
}

func (p *progress) archive(done, total int) {
	p.show(fmt.Sprintf("archiving: %d/%d", done, total))
}

func (p *progress) show(line string) {
	if p.tty && p.last != "" && !sameStage(p.last, line) {
		fmt.Fprintln(p.w)
	}
	p.last = line
	if p.tty {
		fmt.Fprintf(p.w, "\r\033[K%s", line)
	}
}

// finish ends the progress line.
func (p *progress) finish() {
	if p.last == "" {
		return
	}
	if p.tty {
		fmt.Fprintln(p.w)
	} else {
		fmt.Fprintln(p.w, p.last)
	}
	p.last = ""
}

func sameStage(a, b string) bool {
	ai, bi := strings.IndexByte(a, ':'), strings.IndexByte(b, ':')
	return ai >= 0 && ai == bi && a[:ai] == b[:bi]
}

// readLine reads one line of input with only the line ending removed, so
// " yes" and "yes " stay distinct from "yes". EOF after partial input returns
// that input.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		if err == io.EOF {
			return "", nil
		}
		return "", fmt.Errorf("reading input: %w", err)
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
