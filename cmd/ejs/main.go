package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lext-7/ejs"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func main() {
	var (
		inFile    string
		dataFile  string
		outFile   string
		delimiter string
		root      string
		strict    bool
		rmWs      bool
		verbose   bool
		version   bool
	)
	flag.StringVar(&inFile, "in", "", "Input template file")
	flag.StringVar(&dataFile, "data", "", "Data file (.json, .yaml or .yml)")
	flag.StringVar(&outFile, "out", "", "Output file (default stdout)")
	flag.StringVar(&delimiter, "delimiter", "%", "Tag delimiter character")
	flag.StringVar(&root, "root", "", "Root directory for absolute includes")
	flag.BoolVar(&strict, "strict", false, "Fail on missing data fields")
	flag.BoolVar(&rmWs, "rm-whitespace", false, "Strip per-line horizontal whitespace")
	flag.BoolVar(&verbose, "v", false, "Enable debug logging")
	flag.BoolVar(&version, "version", false, "Print version and exit")
	flag.Parse()

	if version {
		fmt.Println("ejs", ejs.Version)
		return
	}
	if inFile == "" {
		fmt.Println("Please provide an input template with -in")
		os.Exit(1)
	}

	var engineOpts []ejs.Option
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Printf("Error creating logger: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = logger.Sync() }()
		engineOpts = append(engineOpts, ejs.WithLogger(logger))
	}

	data, err := loadData(dataFile)
	if err != nil {
		fmt.Printf("Error reading data file: %v\n", err)
		os.Exit(1)
	}

	eng := ejs.New(engineOpts...)
	out, err := eng.RenderFile(inFile, data, &ejs.CompileOptions{
		Delimiter:      delimiter,
		Root:           root,
		Strict:         strict,
		TrimWhitespace: rmWs,
		Debug:          true,
	})
	if err != nil {
		fmt.Printf("Error rendering template: %v\n", err)
		os.Exit(1)
	}

	if outFile == "" {
		fmt.Print(out)
		return
	}
	if err := os.WriteFile(outFile, []byte(out), 0o644); err != nil {
		fmt.Printf("Error writing output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Rendered %s to %s\n", inFile, outFile)
}

// loadData reads the render context from a JSON or YAML file.
func loadData(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(raw, &data)
	default:
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}
