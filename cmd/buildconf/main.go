package main

import (
	"flag"
	"os"

	"github.com/fatih/color"

	"github.com/msaldanha/plasticine/appconfig"
)

func main() {
	outDir := flag.String("out", appconfig.DefaultOutDir, "output directory")
	prefix := flag.String("prefix", appconfig.DefaultPrefix, "prefix of the exported environment variables")
	flag.Parse()

	for _, arg := range flag.Args() {
		if arg == "disabled-config" {
			return
		}
	}

	_, er := appconfig.Generate(appconfig.Options{
		Environ: os.Environ(),
		Prefix:  *prefix,
		OutDir:  *outDir,
		AppName: "plasticine",
	})
	if er != nil {
		os.Exit(1)
	}
	color.Cyan("[plasticine] - build successfully!")
}
