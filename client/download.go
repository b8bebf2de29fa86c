package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dexgs/transpo-go/crypto"
	"github.com/dexgs/transpo-go/limits"
	"github.com/dexgs/transpo-go/transfer"
	"github.com/dexgs/transpo-go/transport"
)

// ErrDownloadRefused indicates the server refused the download: the upload
// expired, never existed, hit its download limit, or the password was
// wrong.
var ErrDownloadRefused = errors.New("download refused by server")

// ciphertextLengthHeader carries the total content ciphertext size,
// excluding the terminator, when the server knows it.
const ciphertextLengthHeader = "Transpo-Ciphertext-Length"

// Download is a started download. The name and MIME type are decoded
// before Fetch returns; the content streams through Body.
type Download struct {
	// Name is the decoded file name, or a synthesized fallback when the
	// name record was empty.
	Name string

	// MIME is the decoded MIME type.
	MIME string

	// Length is the plaintext content length in bytes, or -1 when
	// unknown.
	Length int64

	// Body streams the decrypted content. It returns io.EOF only after
	// the stream's terminator; a connection dropped mid-transfer
	// surfaces as an error, never as a short read mistaken for success.
	Body io.ReadCloser

	// Transfer is the local descriptor for progress and cancellation.
	Transfer *transfer.Transfer

	registry *transfer.Registry
}

// saveChunkSize is the read granularity of Save. Cancellation is observed
// between chunks, so it bounds how much extra content a cancelled download
// still writes.
const saveChunkSize = 32 * 1024

// Save copies the decrypted content to dst and resolves the transfer's
// terminal outcome. Cancelling the transfer aborts the copy and returns
// ErrCancelled; the underlying connection is torn down by the cancellation
// itself.
func (dl *Download) Save(dst io.Writer) error {
	defer dl.registry.Remove(dl.Transfer.ID())
	defer dl.Body.Close()

	buf := make([]byte, saveChunkSize)
	for {
		if dl.Transfer.IsCancelled() {
			return ErrCancelled
		}
		n, err := dl.Body.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				dl.Transfer.Fail(transfer.CodeSourceFailure, werr)
				return werr
			}
		}
		if err == io.EOF {
			dl.Transfer.Complete()
			return nil
		}
		if err != nil {
			// A cancelled transfer aborts the request context, so the
			// read error is the cancellation surfacing.
			if dl.Transfer.IsCancelled() {
				return ErrCancelled
			}
			dl.Transfer.Fail(classifyError(err), err)
			return err
		}
	}
}

// classifyError maps a download error onto the failure taxonomy.
func classifyError(err error) transfer.ErrorCode {
	switch {
	case errors.Is(err, crypto.ErrDecryptFailed):
		return transfer.CodeAuthFailure
	case errors.Is(err, limits.ErrRecordTooLarge):
		return transfer.CodeProtocolViolation
	default:
		return transfer.CodeTransportFailure
	}
}

// Downloader performs encrypted downloads.
type Downloader struct {
	cfg      Config
	registry *transfer.Registry
}

// NewDownloader creates a downloader. Transfers are registered in registry
// for the duration of the download.
func NewDownloader(cfg Config, registry *transfer.Registry) *Downloader {
	return &Downloader{cfg: cfg, registry: registry}
}

// Fetch opens the download described by a share link over HTTP and returns
// once the file name and MIME type have decoded. The content has not been
// consumed yet; the caller streams it from Body, typically via Save.
//
// The server URL embedded in the link is used; the downloader's configured
// ServerURL is not required to match.
func (d *Downloader) Fetch(ctx context.Context, link, password string) (*Download, error) {
	share, err := ParseShareLink(link)
	if err != nil {
		return nil, err
	}

	reqURL := share.ServerURL + "/" + share.ID
	if password != "" {
		reqURL += "?password=" + url.QueryEscape(password)
	}

	httpClient, err := d.cfg.httpClient()
	if err != nil {
		return nil, err
	}

	// The request gets its own cancellable context so cancelling the
	// transfer can abort the connection mid-stream.
	reqCtx, cancelReq := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		cancelReq()
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		cancelReq()
		return nil, fmt.Errorf("connecting to server: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancelReq()
		return nil, fmt.Errorf("%w: HTTP %d", ErrDownloadRefused, resp.StatusCode)
	}

	ciphertextLength := int64(-1)
	if v := resp.Header.Get(ciphertextLengthHeader); v != "" {
		if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
			ciphertextLength = parsed
		}
	}

	cipher, err := crypto.NewCipher(share.Key)
	if err != nil {
		resp.Body.Close()
		cancelReq()
		return nil, err
	}
	dec := transfer.NewDecryptor(cipher)

	tr := transfer.New(uuid.NewString(), transfer.DirectionDownload)
	dec.OnSegment(func(plaintextLen int) {
		tr.ReportProgress(int64(plaintextLen))
	})

	decrypted, err := transport.InterceptResponse(
		resp.Body, dec, ciphertextLength, FallbackName(share.ID, ""))
	if err != nil {
		resp.Body.Close()
		cancelReq()
		return nil, err
	}

	name := dec.Name()
	if name == "" {
		name = FallbackName(share.ID, dec.MIME())
	}

	logrus.WithFields(logrus.Fields{
		"function": "Fetch",
		"id":       share.ID,
		"name":     name,
		"length":   decrypted.ContentLength,
	}).Info("Download started")

	d.registry.Register(tr)
	tr.Start()

	// Abort the request when the transfer ends, whatever the outcome:
	// cancellation unblocks a reader stalled on the socket, and completion
	// releases the context resources.
	go func() {
		<-tr.Done()
		cancelReq()
	}()

	return &Download{
		Name:     name,
		MIME:     dec.MIME(),
		Length:   decrypted.ContentLength,
		Body:     decrypted.Body,
		Transfer: tr,
		registry: d.registry,
	}, nil
}

// Pull downloads a transfer over a websocket with receiver-driven flow
// control, writing decrypted content to dst. It returns the transfer
// descriptor immediately; the terminal outcome arrives on its event
// channel.
func (d *Downloader) Pull(link, password string, dst io.Writer) (*transfer.Transfer, error) {
	share, err := ParseShareLink(link)
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(share.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidShareLink, err)
	}

	query := url.Values{}
	if password != "" {
		query.Set("password", password)
	}
	endpoint := url.URL{
		Scheme:   wsScheme(base.Scheme),
		Host:     base.Host,
		Path:     "/download/" + share.ID,
		RawQuery: query.Encode(),
	}

	dialer, err := d.cfg.dialer()
	if err != nil {
		return nil, err
	}
	conn, _, err := dialer.Dial(endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to server: %w", err)
	}
	sock := transport.NewWebSocket(conn)

	cipher, err := crypto.NewCipher(share.Key)
	if err != nil {
		sock.Close()
		return nil, err
	}
	dec := transfer.NewDecryptor(cipher)

	tr := transfer.New(uuid.NewString(), transfer.DirectionDownload)
	dec.OnSegment(func(plaintextLen int) {
		tr.ReportProgress(int64(plaintextLen))
	})
	d.registry.Register(tr)

	reader := transport.NewPullReader(sock, dec, tr)
	go func() {
		reader.Run(func(segment []byte) error {
			_, err := dst.Write(segment)
			return err
		})
		d.registry.Remove(tr.ID())
	}()

	return tr, nil
}
