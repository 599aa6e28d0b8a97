/*
 * EliasDB
 *
 * Copyright 2016 Matthias Ladkau. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
EliasGraph is an in-memory property graph server which keeps a registry of
named graphs. Graphs can be written into binary snapshots and reloaded from
them.

Features:

- Nodes with labels and edges with a kind, both carrying typed properties.

- Label, kind and adjacency indices as well as optional property indices.

- Snapshots with optional LZ4 or ZSTD compression which are kept on disk, in
memory, in MinIO or in S3.

- Identifier compaction when a graph is reloaded from its snapshot.

- A WebSocket event feed and Prometheus metrics.
*/
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"os"

	"devt.de/krotik/common/fileutil"
	"devt.de/krotik/eliasgraph/config"
	"devt.de/krotik/eliasgraph/graph"
	"devt.de/krotik/eliasgraph/graph/util"
)

func main() {
	if err := runCommand(os.Args, os.Stdout); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

/*
usage prints the usage for tool selection.
*/
func usage(tool string, out io.Writer) {
	fmt.Fprintln(out, fmt.Sprintf("Usage of %s <command>", tool))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "EliasGraph property graph server")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Available commands:")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "    server    Start EliasGraph server")
	fmt.Fprintln(out, "    info      Show the header of a snapshot file")
	fmt.Fprintln(out, "    verify    Read a snapshot file completely and check its consistency")
	fmt.Fprintln(out, "    compact   Rewrite a snapshot file with compacted identifiers")
	fmt.Fprintln(out)
	fmt.Fprintln(out, fmt.Sprintf("Use %s <command> -help for more information about a given command.", tool))
	fmt.Fprintln(out)
}

/*
runCommand runs a command given by a list of command line arguments.
*/
func runCommand(args []string, out io.Writer) error {
	if len(args) < 2 {
		usage(args[0], out)
		return nil
	}

	switch args[1] {

	case "server":
		return serverCommand(args, out)

	case "info":
		return infoCommand(args, out)

	case "verify":
		return verifyCommand(args, out)

	case "compact":
		return compactCommand(args, out)
	}

	usage(args[0], out)

	return nil
}

/*
newFlagSet creates the flag set of a command.
*/
func newFlagSet(args []string, params string, out io.Writer) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(args[1], flag.ContinueOnError)
	fs.SetOutput(out)

	showHelp := fs.Bool("help", false, "Show this help message")

	fs.Usage = func() {
		fmt.Fprintln(out)
		fmt.Fprintln(out, fmt.Sprintf("Usage of %s %s [options] %s", args[0], args[1], params))
		fmt.Fprintln(out)
		fs.PrintDefaults()
		fmt.Fprintln(out)
	}

	return fs, showHelp
}

/*
serverCommand starts the server.
*/
func serverCommand(args []string, out io.Writer) error {
	fs, showHelp := newFlagSet(args, "", out)

	configFile := fs.String("config", config.DefaultConfigFile, "Configuration file")

	if err := fs.Parse(args[2:]); err != nil || *showHelp {
		if *showHelp {
			fs.Usage()
		}
		return err
	}

	if err := config.LoadConfigFile(*configFile); err != nil {
		return fmt.Errorf("Could not load config file %v: %v", *configFile, err)
	}

	StartServer(nil)

	return nil
}

/*
readSnapshotFile reads the snapshot file given as the single argument of a
command.
*/
func readSnapshotFile(fs *flag.FlagSet) ([]byte, error) {
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, fmt.Errorf("Please specify a snapshot file")
	}

	if ok, _ := fileutil.PathExists(fs.Arg(0)); !ok {
		return nil, fmt.Errorf("Snapshot file %v does not exist", fs.Arg(0))
	}

	return os.ReadFile(fs.Arg(0))
}

/*
infoCommand prints the header of a snapshot file.
*/
func infoCommand(args []string, out io.Writer) error {
	fs, showHelp := newFlagSet(args, "<snapshot file>", out)

	if err := fs.Parse(args[2:]); err != nil || *showHelp {
		if *showHelp {
			fs.Usage()
		}
		return err
	}

	data, err := readSnapshotFile(fs)
	if err != nil {
		return err
	}

	info, err := graph.ReadSnapshotInfo(bytes.NewReader(data))
	if err != nil {
		return err
	}

	fmt.Fprintln(out, info)

	return nil
}

/*
verifyCommand decodes a snapshot file completely. This checks all entity
references and rebuilds all indices.
*/
func verifyCommand(args []string, out io.Writer) error {
	fs, showHelp := newFlagSet(args, "<snapshot file>", out)

	if err := fs.Parse(args[2:]); err != nil || *showHelp {
		if *showHelp {
			fs.Usage()
		}
		return err
	}

	data, err := readSnapshotFile(fs)
	if err != nil {
		return err
	}

	gm, err := graph.DecodeSnapshot(bytes.NewReader(data), graph.DecodeOptions{})
	if err != nil {
		return fmt.Errorf("Snapshot %v is invalid: %v", fs.Arg(0), err)
	}

	fmt.Fprintln(out, fmt.Sprintf("Snapshot %v is valid", fs.Arg(0)))
	fmt.Fprintln(out, gm)

	return nil
}

/*
compactCommand rewrites a snapshot file with compacted identifiers.
*/
func compactCommand(args []string, out io.Writer) error {
	fs, showHelp := newFlagSet(args, "<snapshot file>", out)

	outFile := fs.String("out", "", "Output file (default: overwrite the input file)")
	compression := fs.String("compression", "", "Compression of the output (none, lz4, zstd; default: same as input)")

	if err := fs.Parse(args[2:]); err != nil || *showHelp {
		if *showHelp {
			fs.Usage()
		}
		return err
	}

	data, err := readSnapshotFile(fs)
	if err != nil {
		return err
	}

	info, err := graph.ReadSnapshotInfo(bytes.NewReader(data))
	if err != nil {
		return err
	}

	opts := graph.EncodeOptions{Compression: info.Compression}

	if *compression != "" {
		if opts.Compression, err = util.ParseCompression(*compression); err != nil {
			return err
		}
	}

	gm, err := graph.DecodeSnapshot(bytes.NewReader(data), graph.DecodeOptions{CompactIdentifiers: true})
	if err != nil {
		return err
	}

	var buf bytes.Buffer

	newInfo, err := gm.EncodeSnapshot(&buf, opts)
	if err != nil {
		return err
	}

	target := *outFile
	if target == "" {
		target = fs.Arg(0)
	}

	if err := os.WriteFile(target, buf.Bytes(), 0660); err != nil {
		return err
	}

	fmt.Fprintln(out, fmt.Sprintf("Compacted %v/%v nodes and %v/%v edges into %v",
		info.LiveNodes, info.NodeSlots, info.LiveEdges, info.EdgeSlots, target))
	fmt.Fprintln(out, newInfo)

	return nil
}
