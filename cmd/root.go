/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// package cmd is the cobra file that enables subcommands and handles
// command-line args.

package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/inconshreveable/log15"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version string

// appLogger is used for logging events in our commands.
var appLogger = log15.New()

// global options.
var (
	rawDir    string
	arcDir    string
	cacheName string
	logFile   string
	verbose   bool
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "brkbackup",
	Short: "brkbackup keeps zip archives of raw ParaVision datasets up to date.",
	Long: `brkbackup keeps zip archives of raw ParaVision datasets up to date.

A raw directory (--raw, or $BRKBACKUP_RAW_DIR) holds one directory per study as
written by the scanner. An archive directory (--archive, or
$BRKBACKUP_ARCHIVE_DIR) holds one zip per study, along with a cache file
recording what is known about both.

The 'scan' subcommand brings the cache up to date with what is on disk.

The 'backup' subcommand archives every study that needs it.

The 'status' and 'list' subcommands report on what still needs doing and what
has been done.

The 'clean' subcommand deletes problematic archives after confirmation.

The 'log' subcommand shows the history of what has been done.

Settings can also be given in a .env or .env.local file in the current
directory; real environment variables take precedence.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		loadDotEnv()

		switch {
		case logFile != "":
			logToFile(logFile)
		case verbose:
			appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlDebug, log15.StderrHandler))
		default:
			setCLIFormat()
		}
	},
}

func init() {
	// set up logging to stderr
	appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StderrHandler))

	RootCmd.PersistentFlags().StringVarP(&rawDir, "raw", "r", "",
		"directory of raw datasets (default $"+envRawDir+")")
	RootCmd.PersistentFlags().StringVarP(&arcDir, "archive", "a", "",
		"directory of archives (default $"+envArchiveDir+")")
	RootCmd.PersistentFlags().StringVar(&cacheName, "cache-name", "",
		"name of the cache file in the archive directory (default $"+envCacheName+" or .brk-backup_cache)")
	RootCmd.PersistentFlags().StringVar(&logFile, "logfile", "", "log to this file instead of STDERR")
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug messages")

	RootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version of brkbackup",
		Run: func(_ *cobra.Command, _ []string) {
			cliPrint("%s\n", Version)
		},
	})
}

// cliPrint outputs the message to STDOUT.
func cliPrint(msg string, a ...any) {
	fmt.Fprintf(os.Stdout, msg, a...)
}

// info is a convenience to log a message at the Info level.
func info(msg string, a ...any) {
	appLogger.Info(fmt.Sprintf(msg, a...))
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen once to
// the rootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		die("%s", err.Error())
	}
}

// die is a convenience to log a message at the Error level and exit non zero.
func die(msg string, a ...any) {
	appLogger.Error(fmt.Sprintf(msg, a...))
	os.Exit(1)
}

// logToFile logs to the given file.
func logToFile(path string) {
	fh, err := log15.FileHandler(path, log15.LogfmtFormat())
	if err != nil {
		warn("Could not log to file [%s]: %s", path, err)

		return
	}

	appLogger.SetHandler(fh)
}

// warn is a convenience to log a message at the Warn level.
func warn(msg string, a ...any) {
	appLogger.Warn(fmt.Sprintf(msg, a...))
}

// setCLIFormat logs plain text Info and above log messages to STDERR.
func setCLIFormat() {
	appLogger.SetHandler(log15.LvlFilterHandler(log15.LvlInfo, log15.StreamHandler(os.Stderr, cliFormat())))
}

// cliFormat returns a log15.Format that only prints the plain log msg.
func cliFormat() log15.Format { //nolint:ireturn
	return log15.FormatFunc(func(r *log15.Record) []byte {
		b := &bytes.Buffer{}
		fmt.Fprintf(b, "%s\n", r.Msg)

		return b.Bytes()
	})
}
