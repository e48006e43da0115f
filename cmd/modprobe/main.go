// Command modprobe runs modloader discovery outside of the game, to check
// what the shim would stage and which lifecycle entry points it would call.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/phuslu/log"
	"github.com/urfave/cli/v2"
	"go.yuchanns.xyz/libmain"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "modprobe: %v\n", err)
		os.Exit(1)
	}
}

func newApp(out io.Writer) *cli.App {
	rootFlag := &cli.StringFlag{Name: "root", Aliases: []string{"r"}, Value: "/sdcard", Usage: "shared storage root"}
	packageFlag := &cli.StringFlag{Name: "package", Aliases: []string{"p"}, Required: true, Usage: "application id"}

	return &cli.App{
		Name:      "modprobe",
		Usage:     "inspect modloader discovery",
		Writer:    out,
		ErrWriter: out,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log every discovery step"},
			&cli.BoolFlag{Name: "dump", Usage: "dump results with spew"},
		},
		Before: func(ctx *cli.Context) error {
			if log.IsTerminal(os.Stderr.Fd()) {
				log.DefaultLogger.Writer = &log.ConsoleWriter{ColorOutput: true}
			}
			if ctx.Bool("debug") {
				log.DefaultLogger.SetLevel(log.DebugLevel)
			} else {
				log.DefaultLogger.SetLevel(log.WarnLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "paths",
				Usage:  "print the modloader search path",
				Flags:  []cli.Flag{rootFlag, packageFlag},
				Action: paths,
			},
			{
				Name:  "find",
				Usage: "stage and open the modloader the shim would pick",
				Flags: []cli.Flag{
					rootFlag, packageFlag,
					&cli.StringFlag{Name: "files", Aliases: []string{"f"}, Required: true, Usage: "private files dir to stage into"},
					&cli.StringFlag{Name: "suffix", Value: ".so", Usage: "library suffix"},
					&cli.BoolFlag{Name: "sorted", Usage: "pick candidates in lexicographic order"},
				},
				Action: find,
			},
			{
				Name:      "symbols",
				Usage:     "report which loader entry points libraries export",
				ArgsUsage: "<library>...",
				Action:    symbols,
			},
		},
	}
}

func paths(ctx *cli.Context) error {
	p := libmain.SearchPath(ctx.String("root"), ctx.String("package"))
	fmt.Fprintln(ctx.App.Writer, p)
	return nil
}

func find(ctx *cli.Context) error {
	searchPath := libmain.SearchPath(ctx.String("root"), ctx.String("package"))
	found, err := libmain.FindModloader(libmain.NewLinker(), searchPath, ctx.String("files"),
		ctx.String("suffix"), ctx.Bool("sorted"))
	if err != nil {
		return err
	}
	defer found.Library.Close()

	w := ctx.App.Writer
	fmt.Fprintf(w, "source: %s\nstaged: %s\n", found.Source, found.Path)
	report(w, found.Library, libmain.LifecycleSymbols())
	if ctx.Bool("dump") {
		fmt.Fprint(w, spew.Sdump(found))
	}
	return nil
}

func symbols(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return errors.New("missing library list")
	}
	w := ctx.App.Writer
	linker := libmain.NewLinker()
	names := append(libmain.LifecycleSymbols(), "JNI_OnLoad", "JNI_OnUnload")
	for _, path := range ctx.Args().Slice() {
		lib, err := linker.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		fmt.Fprintf(w, "%s:\n", path)
		report(w, lib, names)
		if err := lib.Close(); err != nil {
			log.Warn().Msgf("close %s: %v", path, err)
		}
	}
	return nil
}

func report(w io.Writer, lib libmain.Library, names []string) {
	for _, name := range names {
		if addr, ok := lib.Lookup(name); ok {
			fmt.Fprintf(w, "\t%-32s %#x\n", name, addr)
		} else {
			fmt.Fprintf(w, "\t%-32s missing\n", name)
		}
	}
}
