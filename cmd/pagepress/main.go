// Command pagepress converts photographs of handwritten or printed notes
// into a compact multi-page document.
//
// Each input image is posterized to a small palette (paper background
// plus a handful of ink colors), the processed pages are composed in
// argument order, written as PNG files, and optionally handed to an
// external command (e.g. ImageMagick's convert) for final PDF
// composition. The tool itself never encodes PDFs.
//
// Usage:
//
//	pagepress [options] page1.jpg page2.jpg ...
//
// Defaults for a few options can come from a .env file or the
// environment (PAGEPRESS_OUTDIR, PAGEPRESS_PDF_CMD).
package main

import (
	"context"
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/pagepress/pagepress/internal/batch"
	"github.com/pagepress/pagepress/internal/document"
	"github.com/pagepress/pagepress/internal/imaging"
	"github.com/pagepress/pagepress/internal/quant"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()

	def := quant.DefaultConfig()
	var (
		colors      = flag.Int("colors", def.NumColors, "number of ink colors (background excluded)")
		sampleFrac  = flag.Float64("sample", def.SampleFraction, "fraction of pixels sampled for palette building")
		valueThresh = flag.Float64("value-threshold", def.ValueThreshold, "HSV value cutoff separating ink from paper")
		satThresh   = flag.Float64("sat-threshold", def.SaturationThreshold, "HSV saturation cutoff separating ink from paper")
		saturate    = flag.Bool("saturate", def.Saturate, "stretch ink palette colors to full range")
		whiteBG     = flag.Bool("white-bg", def.WhiteBackground, "force the background to pure white")
		despeckle   = flag.Int("despeckle", 0, "minimum ink speck size in pixels to keep (0 disables)")
		global      = flag.Bool("global", false, "build one shared palette for all pages")
		workers     = flag.Int("workers", 0, "page workers (0 = number of CPUs)")
		keepGoing   = flag.Bool("keep-going", false, "skip failed pages instead of failing the batch")
		sortNumeric = flag.Bool("sort-numeric", false, "order input files by the number embedded in their names")
		uniform     = flag.Bool("uniform", false, "resize all pages to the first page's dimensions")
		basename    = flag.String("basename", "page", "basename for output PNG files")
		outdir      = flag.String("outdir", envOr("PAGEPRESS_OUTDIR", "."), "directory for output files")
		pdfName     = flag.String("pdf", "output.pdf", "output PDF filename (used by -pdf-cmd)")
		pdfCmd      = flag.String("pdf-cmd", os.Getenv("PAGEPRESS_PDF_CMD"), `external PDF composer, e.g. "convert %i %o"`)
		showVersion = flag.Bool("version", false, "print version information and exit")
	)
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("pagepress %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	files := flag.Args()
	if len(files) == 0 {
		usage()
		os.Exit(2)
	}
	if *sortNumeric {
		sortByEmbeddedNumber(files)
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime)

	cfg := quant.Config{
		NumColors:           *colors,
		SampleFraction:      *sampleFrac,
		ValueThreshold:      *valueThresh,
		SaturationThreshold: *satThresh,
		Saturate:            *saturate,
		WhiteBackground:     *whiteBG,
		DespeckleRadius:     *despeckle,
		GlobalPalette:       *global,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("pagepress: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cache := imaging.NewImageCache()
	inputs := make([]batch.Input, 0, len(files))
	for i, path := range files {
		img, err := cache.Load(path)
		if err != nil {
			if *keepGoing {
				log.Printf("pagepress: skipping %s: %v", path, err)
				continue
			}
			log.Fatalf("pagepress: %v", err)
		}
		inputs = append(inputs, batch.Input{Index: i, Source: path, Image: img})
	}

	policy := batch.FailFast
	if *keepGoing {
		policy = batch.SkipErrors
	}
	runner := batch.Runner{Workers: *workers, Policy: policy, Config: cfg}
	res, err := runner.Run(ctx, inputs)
	if err != nil {
		log.Fatalf("pagepress: %v", err)
	}
	for _, pe := range res.Errors {
		log.Printf("pagepress: %v", pe)
	}

	asm := document.Assembler{}
	if *uniform {
		asm.Policy = document.SizeUniform
	}
	doc, err := asm.Assemble(res.Pages)
	if err != nil {
		log.Fatalf("pagepress: %v", err)
	}

	pageFiles, err := writePages(doc, *outdir, *basename)
	if err != nil {
		log.Fatalf("pagepress: %v", err)
	}
	for _, f := range pageFiles {
		fmt.Println(f)
	}

	if *pdfCmd != "" {
		out := filepath.Join(*outdir, *pdfName)
		if err := runPDFCommand(ctx, *pdfCmd, pageFiles, out); err != nil {
			log.Fatalf("pagepress: pdf command: %v", err)
		}
		fmt.Println(out)
	}
}

// writePages encodes every document page as a PNG named
// <basename>_NNNN.png and returns the written paths in page order.
func writePages(doc *document.Document, dir, basename string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	paths := make([]string, 0, len(doc.Pages))
	for i, page := range doc.Pages {
		path := filepath.Join(dir, fmt.Sprintf("%s_%04d.png", basename, i))
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", path, err)
		}
		err = png.Encode(f, page.Raster)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// runPDFCommand expands a command template and executes it. "%i" expands
// to the page files (one argument each), "%o" to the output path.
func runPDFCommand(ctx context.Context, template string, pages []string, out string) error {
	var argv []string
	for _, field := range strings.Fields(template) {
		switch field {
		case "%i":
			argv = append(argv, pages...)
		case "%o":
			argv = append(argv, out)
		default:
			argv = append(argv, field)
		}
	}
	if len(argv) == 0 {
		return fmt.Errorf("empty command template")
	}

	log.Printf("pagepress: running %s", strings.Join(argv, " "))
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

var numberRe = regexp.MustCompile(`\d+`)

// sortByEmbeddedNumber orders file names by the first integer found in
// their base name (page_2.jpg before page_10.jpg), falling back to
// lexical order for names without one.
func sortByEmbeddedNumber(files []string) {
	key := func(path string) (int, bool) {
		m := numberRe.FindString(filepath.Base(path))
		if m == "" {
			return 0, false
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	sort.SliceStable(files, func(i, j int) bool {
		ni, oki := key(files[i])
		nj, okj := key(files[j])
		if oki && okj && ni != nj {
			return ni < nj
		}
		if oki != okj {
			return okj
		}
		return files[i] < files[j]
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintln(os.Stderr, "pagepress - posterize photographed notes into a multi-page document")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Usage: pagepress [options] page1.jpg page2.jpg ...")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Options:")
	flag.PrintDefaults()
}
