// Command treebio-qr prints, downloads or copies a QR code for a TreeBio
// page from the terminal.
//
//	treebio-qr -user ada                  print the image URL
//	treebio-qr -user ada -out ada.png     save the PNG
//	treebio-qr -data https://x.dev -copy  copy to the clipboard
//
// The system clipboard only takes text, so -copy ends up copying the encoded
// data rather than the image.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/atotto/clipboard"

	"github.com/sakif/treebio/internal/config"
	"github.com/sakif/treebio/internal/qrcode"
	"github.com/sakif/treebio/internal/share"
)

// systemClipboard copies text through atotto/clipboard (pbcopy, xclip,
// xsel, wl-copy or the Windows API).
type systemClipboard struct{}

func (systemClipboard) CopyText(ctx context.Context, text string) error {
	if clipboard.Unsupported {
		return errors.New("no clipboard utility found")
	}
	return clipboard.WriteAll(text)
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a TOML config file")
		user       = flag.String("user", "", "username whose public page to encode")
		data       = flag.String("data", "", "URL or text to encode (overrides -user)")
		size       = flag.Int("size", qrcode.DefaultSize, "image size in pixels")
		ecc        = flag.String("ecc", qrcode.DefaultECC, "error correction level: L, M, Q or H")
		out        = flag.String("out", "", "write the PNG to this file")
		copyFlag   = flag.Bool("copy", false, "copy to the clipboard")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)

	if err := run(cfg, logger, *user, *data, *size, *ecc, *out, *copyFlag); err != nil {
		logger.Error("treebio-qr failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, user, data string, size int, ecc, out string, copyToClipboard bool) error {
	if data == "" && user != "" {
		data = share.ProfileURL(cfg.Server.BaseURL, user)
	}

	builder := qrcode.NewBuilder(cfg.QR.Endpoint, nil)
	opts := qrcode.Options{Data: data, Size: size, ECC: ecc}

	imageURL, err := builder.URL(opts)
	if err != nil {
		return err
	}
	fmt.Println(imageURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if out != "" {
		img, err := saveImage(ctx, builder, opts, out)
		if err != nil {
			return err
		}
		logger.Info("QR code saved",
			slog.String("file", out),
			slog.String("contentType", img.ContentType),
			slog.Int64("bytes", img.Bytes),
		)
	}

	if copyToClipboard {
		mode, err := qrcode.Copy(ctx, nil, systemClipboard{}, nil, data)
		if err != nil {
			return err
		}
		logger.Info("copied to clipboard", slog.String("mode", string(mode)))
	}
	return nil
}

// saveImage downloads into path. Nothing is left at path when the download
// or the write fails.
func saveImage(ctx context.Context, builder *qrcode.Builder, opts qrcode.Options, path string) (qrcode.Image, error) {
	f, err := os.Create(path)
	if err != nil {
		return qrcode.Image{}, fmt.Errorf("creating %s: %w", path, err)
	}
	img, err := builder.Download(ctx, opts, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return qrcode.Image{}, err
	}
	return img, nil
}
