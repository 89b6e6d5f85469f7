package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"image-enhancer/internal/client"
	"image-enhancer/internal/core/filter"
	"image-enhancer/internal/pkg/common"
)

type options struct {
	server    string
	filter    string
	intensity float64
	out       string
	timeout   time.Duration
	list      bool
	logLevel  string
}

func main() {
	opts := options{}
	flags := pflag.NewFlagSet("enhance", pflag.ExitOnError)
	flags.StringVar(&opts.server, "server", "http://localhost:5000", "影像增強服務位址")
	flags.StringVar(&opts.filter, "filter", "", "套用具名濾鏡而非預設增強管線")
	flags.Float64Var(&opts.intensity, "intensity", filter.DefaultIntensity, "濾鏡強度 [0,1]")
	flags.StringVarP(&opts.out, "out", "o", "", "輸出路徑，預設為 <輸入>_enhanced.jpg")
	flags.DurationVar(&opts.timeout, "timeout", 60*time.Second, "請求逾時")
	flags.BoolVar(&opts.list, "list", false, "列出可用的濾鏡")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "日誌級別")
	flags.Usage = func() {
		fmt.Fprintf(os.Stderr, "用法: enhance [flags] <image>\n\n")
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	if err := common.InitLogger(opts.logLevel, common.LogFileOptions{}); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if err := run(opts, flags.Args()); err != nil {
		common.LogError("enhance failed", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opts.timeout)
	defer cancel()

	c := client.New(opts.server, opts.timeout)

	if opts.list {
		names, err := c.Filters(ctx)
		if err != nil {
			return err
		}
		fmt.Println(strings.Join(names, "\n"))
		return nil
	}

	if len(args) != 1 {
		return fmt.Errorf("expected exactly one input image, got %d", len(args))
	}
	input := args[0]

	if opts.filter != "" {
		if err := filter.ValidateIntensity(opts.intensity); err != nil {
			return err
		}
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	start := time.Now()
	var out []byte
	if opts.filter != "" {
		out, err = c.ApplyFilter(ctx, opts.filter, opts.intensity, data, filepath.Base(input))
	} else {
		out, err = c.Enhance(ctx, data, filepath.Base(input))
	}
	if err != nil {
		return err
	}

	dst := opts.out
	if dst == "" {
		dst = outputPath(input)
	}
	if err := os.WriteFile(dst, out, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	common.LogInfo("已輸出",
		zap.String("input", input),
		zap.String("output", dst),
		zap.Int("bytes", len(out)),
		zap.Duration("耗時", time.Since(start)),
	)
	fmt.Println(dst)
	return nil
}

// outputPath photo.png -> photo_enhanced.jpg
func outputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_enhanced.jpg"
}
