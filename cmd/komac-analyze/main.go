package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"

	komacanalysis "github.com/russellbanks/komac-analyzer"
	"github.com/russellbanks/komac-analyzer/internal/cli"
)

var Version = "0.1.0-dev"

type cliArgs struct {
	url     string
	asJSON  bool
	noColor bool
	files   []string
}

func main() {
	args := parseArgs()

	if args.noColor {
		cli.DisableColors()
	}

	if len(args.files) == 0 {
		printUsage()
		os.Exit(10)
	}

	for _, filename := range args.files {
		if err := processFile(filename, args); err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", cli.Error("Error processing"), cli.Filename(filename), err)
			os.Exit(1)
		}
	}
}

func processFile(filename string, args *cliArgs) error {
	fmt.Printf("Analyzing %s...\n", cli.Filename(filename))

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	rec, err := komacanalysis.Analyze(data, filename, args.url)
	if err != nil {
		return fmt.Errorf("analyzing: %w", err)
	}

	if args.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rec)
	}

	fmt.Printf("  Type:         %s\n", cli.Bold(string(rec.InstallerType)))
	fmt.Printf("  Architecture: %s\n", rec.Architecture)
	fmt.Printf("  Scope:        %s\n", rec.Scope)
	if rec.Publisher != "" {
		fmt.Printf("  Publisher:    %s\n", rec.Publisher)
	}
	if rec.PackageName != "" {
		fmt.Printf("  Package:      %s\n", rec.PackageName)
	}
	if loc := rec.InstallationMetadata.DefaultInstallLocation; loc != "" {
		fmt.Printf("  Install dir:  %s\n", cli.Filename(loc))
	}
	if n := len(rec.AppsAndFeatures); n > 0 {
		fmt.Printf("  ARP entries:  %s\n", cli.Number(fmt.Sprintf("%d", n)))
	}
	if rec.NestedInstallerType != nil {
		fmt.Printf("  Nested type:  %s\n", cli.Info(string(*rec.NestedInstallerType)))
	}
	fmt.Printf("  %s\n", cli.Success("done"))
	return nil
}

func parseArgs() *cliArgs {
	originalArgs := make(map[string]string)

	var flags []string
	var files []string

	for _, arg := range os.Args[1:] {
		switch {
		case strings.HasPrefix(arg, "/") && !strings.Contains(arg, "\\") && !strings.Contains(arg, ":"):
			converted := "--" + strings.ToLower(arg[1:])
			originalArgs[converted] = arg
			flags = append(flags, converted)
		case strings.HasPrefix(arg, "/") && strings.Contains(arg, ":"):
			parts := strings.SplitN(arg, ":", 2)
			key := strings.ToLower(parts[0][1:])
			converted := "--" + key + "=" + parts[1]
			originalArgs["--"+key] = "/" + strings.ToUpper(key)
			flags = append(flags, converted)
		case strings.HasPrefix(arg, "--") || strings.HasPrefix(arg, "-"):
			flags = append(flags, arg)
		default:
			files = append(files, arg)
		}
	}

	newArgs := append(flags, files...)

	args := &cliArgs{}

	fs := flag.NewFlagSet("komac-analyze", flag.ContinueOnError)
	fs.SetOutput(&discardWriter{})

	fs.StringVar(&args.url, "url", "", "")
	fs.BoolVar(&args.asJSON, "json", false, "")
	fs.BoolVar(&args.noColor, "no-color", false, "")

	var showHelp bool
	fs.BoolVar(&showHelp, "help", false, "")
	fs.BoolVar(&showHelp, "h", false, "")
	fs.BoolVar(&showHelp, "?", false, "")

	if err := fs.Parse(newArgs); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "flag provided but not defined:") {
			parts := strings.SplitN(errStr, ":", 2)
			if len(parts) == 2 {
				badFlag := strings.TrimSpace(parts[1])
				if orig, ok := originalArgs[badFlag]; ok {
					fmt.Fprintf(os.Stderr, "Unknown option: %s\n\n", orig)
				} else {
					fmt.Fprintf(os.Stderr, "Unknown option: %s\n\n", badFlag)
				}
			}
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		}
		printUsage()
		os.Exit(2)
	}

	if showHelp {
		printUsage()
		os.Exit(0)
	}

	args.files = fs.Args()
	return args
}

type discardWriter struct{}

func (d *discardWriter) Write(p []byte) (n int, err error) {
	return len(p), nil
}

func printUsage() {
	fmt.Printf("komac-analyze - Version %s\n", cli.Bold(Version))
	fmt.Printf("Installer format analysis tool [%s/%s]\n", runtime.GOOS, runtime.GOARCH)
	fmt.Println()
	fmt.Printf("Usage: %s [OPTIONS] FILE [FILE...]\n", cli.Bold("komac-analyze"))
	fmt.Println()
	fmt.Println(cli.Bold("Options:"))
	fmt.Printf("  %s         Source download URL, used to fill fields the artifact leaves unset\n", cli.Info("/URL:ADDRESS"))
	fmt.Printf("  %s              Emit the full InstallerRecord as JSON\n", cli.Info("/JSON"))
	fmt.Printf("  %s          Disable colored output\n", cli.Info("/NO-COLOR"))
	fmt.Printf("  %s            Show this help message\n", cli.Info("/?, /HELP"))
	fmt.Println()
	fmt.Println(cli.Bold("Examples:"))
	fmt.Printf("  %s\n", cli.Filename("komac-analyze setup.exe"))
	fmt.Printf("  %s\n", cli.Filename("komac-analyze /JSON installer.msi"))
	fmt.Printf("  %s\n", cli.Filename(`komac-analyze /URL:https://example.com/app-x64-setup.exe setup.exe`))
}
