package auth

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

type BrowserResultType string

const (
	// BrowserSuccess: the auth session ended on the redirect URI; URL holds it.
	BrowserSuccess BrowserResultType = "success"
	BrowserCancel  BrowserResultType = "cancel"
	BrowserDismiss BrowserResultType = "dismiss"
	// BrowserOpened: control was handed to an external browser; the redirect will
	// arrive later through HandleURL.
	BrowserOpened BrowserResultType = "opened"
)

type BrowserResult struct {
	Type BrowserResultType
	URL  string
}

// Browser opens the provider consent page and waits for the redirect back.
type Browser interface {
	OpenAuthSession(ctx context.Context, authURL, redirectURI string) (BrowserResult, error)
}

// BrowserFunc adapts a function to Browser.
type BrowserFunc func(ctx context.Context, authURL, redirectURI string) (BrowserResult, error)

func (f BrowserFunc) OpenAuthSession(ctx context.Context, authURL, redirectURI string) (BrowserResult, error) {
	return f(ctx, authURL, redirectURI)
}

// TerminalBrowser prints the consent URL and reads the redirect URL pasted back by
// the user. An empty line cancels.
type TerminalBrowser struct {
	In  io.Reader
	Out io.Writer
}

func (b TerminalBrowser) OpenAuthSession(ctx context.Context, authURL, redirectURI string) (BrowserResult, error) {
	fmt.Fprintf(b.Out, "Open this URL in a browser and sign in:\n\n  %s\n\n", authURL)
	fmt.Fprintf(b.Out, "Then paste the URL you were redirected to (starts with %s):\n> ", redirectURI)

	lines := make(chan string, 1)
	errs := make(chan error, 1)
	go func() {
		line, err := bufio.NewReader(b.In).ReadString('\n')
		if err != nil && line == "" {
			errs <- err
			return
		}
		lines <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return BrowserResult{}, ctx.Err()
	case err := <-errs:
		if err == io.EOF {
			return BrowserResult{Type: BrowserCancel}, nil
		}
		return BrowserResult{}, err
	case line := <-lines:
		if line == "" {
			return BrowserResult{Type: BrowserCancel}, nil
		}
		return BrowserResult{Type: BrowserSuccess, URL: line}, nil
	}
}
