// T86 - Interactive debugger front-end.
//
// Copyright 2024, Richard Cornwell
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	getopt "github.com/pborman/getopt/v2"
	"github.com/peterh/liner"

	"github.com/t86sim/t86/internal/dbginfo"
	"github.com/t86sim/t86/internal/debugclient"
	"github.com/t86sim/t86/internal/logging"
	"github.com/t86sim/t86/internal/protocol"
)

func main() {
	os.Exit(run())
}

func run() int {
	optHost := getopt.StringLong("host", 'H', "localhost", "Simulator host")
	optPort := getopt.IntLong("port", 'p', 2159, "Simulator debug port")
	optDebugInfo := getopt.StringLong("debuginfo", 'g', "", "Debug-info file (.debug_line/.debug_info/.debug_source)")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		return 0
	}

	logger := slog.New(logging.NewHandler(nil, &slog.HandlerOptions{Level: slog.LevelInfo}, new(bool)))
	slog.SetDefault(logger)

	var info *dbginfo.Info
	if *optDebugInfo != "" {
		f, err := os.Open(*optDebugInfo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "t86-dbg: %v\n", err)
			return 3
		}
		defer f.Close()
		parsed, err := dbginfo.Parse(f)
		if err != nil {
			fmt.Fprintf(os.Stderr, "t86-dbg: parsing debug info: %v\n", err)
			return 2
		}
		info = parsed
	}

	addr := fmt.Sprintf("%s:%d", *optHost, *optPort)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "t86-dbg: connecting to %s: %v\n", addr, err)
		return 3
	}
	defer conn.Close()

	native := debugclient.New(protocol.New(conn))
	sess := newSession(native, info)

	ev, err := native.WaitForDebugEvent()
	if err != nil {
		fmt.Fprintf(os.Stderr, "t86-dbg: waiting for initial stop: %v\n", err)
		return 3
	}
	sess.reportStop(ev)

	runREPL(sess)
	return 0
}

// runREPL drives the liner prompt loop, modeled on the teacher's
// command/reader.ConsoleReader: read a line, complete against the command
// table, dispatch, print either the result or an "Error: " line, and keep
// going until the user quits or the line source is exhausted.
func runREPL(sess *session) {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetCompleter(func(l string) []string {
		return completeCommand(l)
	})

	for {
		text, err := line.Prompt("t86> ")
		if err == nil {
			line.AppendHistory(text)
			quit, err := dispatch(sess, text)
			if err != nil {
				fmt.Println("Error: " + err.Error())
			}
			if quit {
				return
			}
			continue
		}

		if errors.Is(err, liner.ErrPromptAborted) {
			return
		}
		slog.Error("reading line", "err", err)
		return
	}
}
