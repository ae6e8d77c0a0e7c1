// T86 - Simulator launcher.
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
	"fmt"
	"log/slog"
	"net"
	"os"

	getopt "github.com/pborman/getopt/v2"

	"github.com/t86sim/t86/internal/asmparser"
	"github.com/t86sim/t86/internal/cpu"
	"github.com/t86sim/t86/internal/debugserver"
	"github.com/t86sim/t86/internal/logging"
	"github.com/t86sim/t86/internal/ostick"
	"github.com/t86sim/t86/internal/protocol"
)

const (
	exitSuccess = iota
	exitUsage
	exitParse
	exitIO
)

func main() {
	os.Exit(run())
}

func run() int {
	optDebug := getopt.BoolLong("debug", 'd', "Wait for a debugger to attach before running")
	optPort := getopt.IntLong("port", 'p', 2159, "TCP port the debug server listens on")
	optRegisterCnt := getopt.IntLong("register-cnt", 'r', 10, "Number of general-purpose registers")
	optFloatRegisterCnt := getopt.IntLong("float-register-cnt", 'f', 5, "Number of floating-point registers")
	optMemorySize := getopt.IntLong("memory-size", 'm', 1024, "Words of data RAM")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("FILE")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		return exitSuccess
	}

	args := getopt.Args()
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "t86-cli: exactly one FILE argument is required")
		getopt.Usage()
		return exitUsage
	}

	var logFile *os.File
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "t86-cli: %v\n", err)
			return exitIO
		}
		logFile = f
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	logger := slog.New(logging.NewHandler(logFile, &slog.HandlerOptions{Level: programLevel}, optDebug))
	slog.SetDefault(logger)

	f, err := os.Open(args[0])
	if err != nil {
		logger.Error("opening program", "err", err)
		return exitIO
	}
	defer f.Close()

	prog, err := asmparser.Parse(f)
	if err != nil {
		logger.Error("parsing program", "err", err)
		return exitParse
	}

	cfg := cpu.DefaultConfig()
	cfg.RegisterCnt = *optRegisterCnt
	cfg.FloatRegisterCnt = *optFloatRegisterCnt
	cfg.RAMSize = *optMemorySize

	c := cpu.New(cfg)
	runner := ostick.New(c)

	if *optDebug {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", *optPort))
		if err != nil {
			logger.Error("opening debug listener", "err", err)
			return exitIO
		}
		defer ln.Close()
		logger.Info("waiting for debugger to attach", "addr", ln.Addr())

		conn, err := ln.Accept()
		if err != nil {
			logger.Error("accepting debugger connection", "err", err)
			return exitIO
		}
		defer conn.Close()

		ch := protocol.New(conn)
		runner.SetDebugInterface(debugserver.New(ch, c))
	}

	ok, err := runner.Run(prog.Text, prog.Data)
	if err != nil {
		logger.Error("execution fault", "err", err)
		return exitIO
	}
	if !ok {
		logger.Info("stopped by debugger")
	}
	return exitSuccess
}
