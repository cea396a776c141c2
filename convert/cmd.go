// Package convert implements the batch conversion commands: encoding
// whole folders of images into QOI files and decoding them back into
// common raster formats.
package convert

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"qoiproc/parallel"
	"qoiproc/qoi"

	"github.com/alecthomas/kong"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/vp8l"
	_ "golang.org/x/image/webp"
)

type OpParams struct {
	Scan string `help:"Source folder to scan" default:"."`
	Dest string `help:"Destination folder for converted images. Relative to scan dir if not absolute." default:"converted"`
}

type CLICmd struct {
	Enc struct {
		OpParams
		Zstd bool `help:"Additionally compress each encoded stream with zstd (.qoi.zst)"`
	} `cmd:"" help:"Encode images into QOI files"`
	Dec struct {
		OpParams
		Format string `help:"Output format for decoded images" enum:"gif,jpeg,png,bmp,tiff" default:"png"`
	} `cmd:"" help:"Decode QOI files into another image format"`
}

func (c *CLICmd) Validate(kctx *kong.Context) error {
	var conf *OpParams
	switch kctx.Selected().Name {
	case "enc":
		conf = &c.Enc.OpParams
	case "dec":
		conf = &c.Dec.OpParams
	}

	scanDir, err := filepath.Abs(conf.Scan)
	var info os.FileInfo
	if err == nil {
		if info, err = os.Stat(scanDir); err == nil && !info.IsDir() {
			err = fmt.Errorf("not a directory")
		}
	}
	if err != nil {
		return fmt.Errorf("invalid scan path %q: %w", conf.Scan, err)
	}
	conf.Scan = scanDir

	if !filepath.IsAbs(conf.Dest) {
		conf.Dest = filepath.Join(scanDir, conf.Dest)
	}

	return nil
}

func (c *CLICmd) Run(subCmd string, pool *parallel.Pool) error {
	var conf OpParams
	match := func(string) bool { return true }
	var fileOp func(src, destDir string) error

	switch subCmd {
	case "enc":
		conf = c.Enc.OpParams
		fileOp = func(src, destDir string) error {
			return encodeFile(src, destDir, c.Enc.Zstd)
		}
	case "dec":
		conf = c.Dec.OpParams
		match = isQOIName
		fileOp = func(src, destDir string) error {
			return decodeFile(src, destDir, c.Dec.Format)
		}
	}

	if err := os.MkdirAll(conf.Dest, os.ModeDir); err != nil {
		return fmt.Errorf("unable to create destination folder %q: %w", conf.Dest, err)
	}

	files, err := os.ReadDir(conf.Scan)
	if err != nil {
		return fmt.Errorf("unable to read folder %q: %w", conf.Scan, err)
	}

	var processedCount, errCount atomic.Uint64
	for _, file := range files {
		if file.IsDir() || !match(file.Name()) {
			continue
		}

		name := filepath.Join(conf.Scan, file.Name())
		pool.Do(func() {
			logger := slog.Default().With("file", name)
			if err := fileOp(name, conf.Dest); err != nil {
				errCount.Add(1)
				logger.Error("could not convert image", "error", err)
				return
			}
			processedCount.Add(1)
		})
	}
	pool.Wait()

	processed := processedCount.Load()
	errors := errCount.Load()
	slog.Info("stats", "processed", processed, "errors", errors,
		"total", processed+errors)

	if errors > 0 {
		return fmt.Errorf("error processing %d files", errors)
	}
	return nil
}

// isQOIName matches the file names the dec subcommand handles, with or
// without the zstd suffix the enc subcommand may have added.
func isQOIName(name string) bool {
	name = strings.TrimSuffix(name, ".zst")
	return strings.EqualFold(filepath.Ext(name), ".qoi")
}

func encodeFile(src, destDir string, compress bool) error {
	inFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open source file %q: %w", src, err)
	}
	defer func() {
		if closeErr := inFile.Close(); closeErr != nil {
			slog.Error("could not close source file", "name", src, "error", closeErr)
		}
	}()

	img, _, err := image.Decode(inFile)
	if err != nil {
		return fmt.Errorf("could not decode image %q: %w", src, err)
	}

	ext, srcName := ".qoi", filepath.Base(src)
	if compress {
		ext = ".qoi.zst"
	}
	destName := strings.TrimSuffix(srcName, filepath.Ext(srcName)) + ext

	return writeFile(destDir, destName, func(w io.Writer) error {
		if !compress {
			return qoi.Encode(w, img)
		}

		zw, err := zstd.NewWriter(w,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
		)
		if err != nil {
			return fmt.Errorf("could not create zstd writer: %w", err)
		}
		if err := qoi.Encode(zw, img); err != nil {
			zw.Close()
			return err
		}
		return zw.Close()
	})
}

func decodeFile(src, destDir, format string) error {
	inFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("could not open source file %q: %w", src, err)
	}
	defer func() {
		if closeErr := inFile.Close(); closeErr != nil {
			slog.Error("could not close source file", "name", src, "error", closeErr)
		}
	}()

	var in io.Reader = inFile
	srcName := filepath.Base(src)
	if strings.EqualFold(filepath.Ext(srcName), ".zst") {
		zr, err := zstd.NewReader(inFile, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return fmt.Errorf("could not create zstd reader for %q: %w", src, err)
		}
		defer zr.Close()
		in = zr
		srcName = strings.TrimSuffix(srcName, filepath.Ext(srcName))
	}

	img, err := qoi.Decode(in)
	if err != nil {
		return fmt.Errorf("could not decode QOI image %q: %w", src, err)
	}

	destName := strings.TrimSuffix(srcName, filepath.Ext(srcName)) + "." + format
	return writeFile(destDir, destName, func(w io.Writer) error {
		switch format {
		case "gif":
			return gif.Encode(w, img, nil)
		case "jpeg":
			return jpeg.Encode(w, img, &jpeg.Options{Quality: 100})
		case "png":
			enc := png.Encoder{CompressionLevel: png.BestCompression}
			return enc.Encode(w, img)
		case "bmp":
			return bmp.Encode(w, img)
		case "tiff":
			return tiff.Encode(w, img, nil)
		}
		return fmt.Errorf("unsupported output format: %s", format)
	})
}

// writeFile writes through a temporary file in destDir and renames it
// into place only after a successful sync, so a failed conversion never
// leaves a truncated destination behind.
func writeFile(destDir, destName string, write func(io.Writer) error) (err error) {
	outFile, err := os.CreateTemp(destDir, destName)
	if err != nil {
		return fmt.Errorf("could not create temporary destination %q: %w", destName, err)
	}

	canRename := false
	defer func() {
		if defErr := outFile.Sync(); defErr != nil && err == nil {
			err = fmt.Errorf("could not flush temporary destination %q: %w", destName, defErr)
		}
		if defErr := outFile.Close(); defErr != nil && err == nil {
			err = fmt.Errorf("could not close temporary destination %q: %w", destName, defErr)
		}

		if err != nil || !canRename {
			if defErr := os.Remove(outFile.Name()); defErr != nil {
				slog.Error("could not remove temporary destination", "name", outFile.Name(), "error", defErr)
			}
			return
		}
		if defErr := os.Rename(outFile.Name(), filepath.Join(destDir, destName)); defErr != nil {
			err = fmt.Errorf("could not rename destination file %q: %w", destName, defErr)
		}
	}()

	if err = write(outFile); err != nil {
		return err
	}
	canRename = true
	return nil
}
