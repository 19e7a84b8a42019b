// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"encoding/gob"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/corvid-re/packedvm/pkg/assembler"
	"github.com/corvid-re/packedvm/pkg/debugger"
	"github.com/corvid-re/packedvm/pkg/loader"
	"github.com/corvid-re/packedvm/pkg/machine"
)

var helpvar bool
var debugvar bool
var shouldexit bool

const usage = "vm13 filename"

func init() {
	exe, _ := os.Executable()
	log.SetFlags(0)
	log.SetPrefix(fmt.Sprintf("%s: ", filepath.Base(exe)))
	log.SetOutput(os.Stderr)
}

func init() {
	flag.BoolVar(&helpvar, "help", false, "Displays command usage")
	flag.BoolVar(&debugvar, "debug", false, "Runs the machine in a debug CLI")
	flag.Parse()
}

func run() int {
	if helpvar {
		fmt.Println(usage)
		return 0
	}

	args := flag.Args()

	if len(args) != 1 {
		log.Println(usage)
		return 1
	}

	file, err := os.Open(args[0])
	if err != nil {
		log.Println(err)
		return 1
	}
	defer file.Close()

	var mc machine.Machine
	mc.Reset()
	mc.IO = machine.NewConsoleIO(bufio.NewReader(os.Stdin), bufio.NewWriter(os.Stdout))

	if debugvar {
		var dbg debugger.Debugger
		dbg.HandleBreak = handleBreak
		dbg.HandleRead = handleRead
		dbg.HandleWrite = handleWrite
		dbg.Binary = file
		mc.Debugger = &dbg

		symfile := filepath.Dir(args[0]) + "/" + strings.ReplaceAll(
			filepath.Base(args[0]), filepath.Ext(args[0]), ".vm13db",
		)

		if sf, err := os.Open(symfile); err == nil {
			var symtable assembler.SymTable
			if err := gob.NewDecoder(sf).Decode(&symtable); err == nil {
				dbg.SymTable = &symtable
			} else {
				log.Println("Error loading symbol file")
				log.Println(err)
			}
			sf.Close()
		} else {
			log.Println("Error loading symbol file")
			log.Println(err)
		}

		if dbg.SymTable != nil && dbg.SymTable.Source != "" {
			if sf, err := os.Open(dbg.SymTable.Source); err == nil {
				dbg.Source = sf
				defer sf.Close()
			} else {
				log.Println("Error loading source file")
				log.Println(err)
			}
		}

		c := make(chan os.Signal, 1)
		defer close(c)

		signal.Notify(c, os.Interrupt)
		go func() {
			for range c {
				fmt.Println()
				dbg.Break = true
			}
		}()
	} else {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		go func() {
			<-c
			mc.RequestStop()
		}()
	}

	img, err := loader.LoadInto(&mc, file)
	if err != nil {
		log.Println(err)
		return 1
	}
	log.Printf("loaded %d words, checksum %#08x\n", len(img.Words), img.Checksum)

	enterRawTerm()
	defer exitRawTerm()

	if debugvar {
		debugREPL(mc.Debugger.(*debugger.Debugger), &mc)
	}

	for !shouldexit {
		halted, trap := mc.Step()
		if trap != nil {
			log.Println(trap)
			return 1
		}
		if halted {
			return 0
		}
	}

	return 0
}

func main() {
	os.Exit(run())
}
