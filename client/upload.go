package client

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dexgs/transpo-go/crypto"
	"github.com/dexgs/transpo-go/transfer"
	"github.com/dexgs/transpo-go/transport"
)

// ErrNoLifetime indicates upload options with a zero total lifetime.
var ErrNoLifetime = errors.New("upload lifetime must be longer than 0 minutes")

// ErrHandshakeFailed indicates the server closed or misbehaved before
// sending an upload ID.
var ErrHandshakeFailed = errors.New("upload handshake failed")

// UploadOptions configures a single upload.
type UploadOptions struct {
	// FileName is the name presented to downloaders. Empty denotes a
	// pre-archived multi-file stream, which carries no intrinsic name.
	FileName string

	// MIMEType defaults to application/octet-stream.
	MIMEType string

	// Lifetime of the upload, folded to minutes. The total must be
	// positive.
	Days    int
	Hours   int
	Minutes int

	// Password optionally protects downloads.
	Password string

	// DownloadLimit caps downloads when positive.
	DownloadLimit int
}

// TotalMinutes folds the lifetime fields into minutes.
func (o UploadOptions) TotalMinutes() int {
	return o.Minutes + 60*o.Hours + 24*60*o.Days
}

// Upload is a started upload. The server-assigned ID and the share link are
// available immediately; progress and the terminal outcome arrive on the
// transfer's event channel.
type Upload struct {
	// ServerID is the identifier the server assigned to the upload.
	ServerID string

	// Key is the transfer key. It appears nowhere but here and in the
	// share link fragment.
	Key crypto.Key

	// ShareLink is the full link to hand to recipients.
	ShareLink string

	// Transfer is the local descriptor; its ID is a locally generated
	// handle for cancellation, distinct from ServerID.
	Transfer *transfer.Transfer
}

// Wait consumes the transfer's events until the terminal outcome and
// returns nil for completion, the failure error for failure, or
// ErrCancelled.
func (up *Upload) Wait() error {
	return waitTerminal(up.Transfer)
}

// ErrCancelled is returned by Wait when the transfer was cancelled.
var ErrCancelled = errors.New("transfer cancelled")

func waitTerminal(tr *transfer.Transfer) error {
	for event := range tr.Events() {
		switch event.Type {
		case transfer.EventCompleted:
			return nil
		case transfer.EventFailed:
			return fmt.Errorf("%s: %w", event.Code, event.Err)
		case transfer.EventCancelled:
			return ErrCancelled
		}
	}
	return nil
}

// Uploader performs encrypted uploads against one server.
type Uploader struct {
	cfg      Config
	registry *transfer.Registry
}

// NewUploader creates an uploader. Transfers are registered in registry for
// the duration of the upload so they can be cancelled externally.
func NewUploader(cfg Config, registry *transfer.Registry) *Uploader {
	return &Uploader{cfg: cfg, registry: registry}
}

// Upload starts an encrypted upload of src and returns once the server has
// assigned an upload ID. The returned Upload carries the share link; the
// caller observes progress and the terminal outcome through the transfer's
// event channel or Wait.
func (u *Uploader) Upload(src io.Reader, opts UploadOptions) (*Upload, error) {
	if opts.TotalMinutes() <= 0 {
		return nil, ErrNoLifetime
	}

	base, err := u.cfg.serverURL()
	if err != nil {
		return nil, err
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	cipher, err := crypto.NewCipher(key)
	if err != nil {
		return nil, err
	}

	mime := opts.MIMEType
	if mime == "" {
		mime = "application/octet-stream"
	}
	enc, err := transfer.NewEncryptor(cipher, src, opts.FileName, mime)
	if err != nil {
		return nil, err
	}

	dialer, err := u.cfg.dialer()
	if err != nil {
		return nil, err
	}
	conn, _, err := dialer.Dial(uploadURL(base, enc, opts), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to server: %w", err)
	}
	sock := transport.NewWebSocket(conn)

	id, err := receiveUploadID(sock)
	if err != nil {
		sock.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"function": "Upload",
		"id":       id,
		"minutes":  opts.TotalMinutes(),
	}).Info("Upload accepted by server")

	tr := transfer.New(uuid.NewString(), transfer.DirectionUpload)
	u.registry.Register(tr)

	go u.watchServer(sock, tr)

	writer := transport.NewUploadWriter(sock, enc, tr)
	go func() {
		writer.Run()
		sock.Close()
		u.registry.Remove(tr.ID())
	}()

	return &Upload{
		ServerID:  id,
		Key:       key,
		ShareLink: BuildShareLink(u.cfg.ServerURL, id, key, opts.Password != ""),
		Transfer:  tr,
	}, nil
}

// uploadURL builds the websocket endpoint with the upload parameters. The
// file name and MIME type travel as Base64url ciphertext so the server can
// serve them to browser downloads without ever seeing the plaintext.
func uploadURL(base *url.URL, enc *transfer.Encryptor, opts UploadOptions) string {
	query := url.Values{}
	query.Set("minutes", strconv.Itoa(opts.TotalMinutes()))
	query.Set("file-name", base64.RawURLEncoding.EncodeToString(enc.NameCiphertext()))
	query.Set("mime-type", base64.RawURLEncoding.EncodeToString(enc.MIMECiphertext()))
	if opts.Password != "" {
		query.Set("password", opts.Password)
	}
	if opts.DownloadLimit > 0 {
		query.Set("max-downloads", strconv.Itoa(opts.DownloadLimit))
	}

	endpoint := url.URL{
		Scheme:   wsScheme(base.Scheme),
		Host:     base.Host,
		Path:     "/upload",
		RawQuery: query.Encode(),
	}
	return endpoint.String()
}

// receiveUploadID performs the handshake: the first message is either the
// upload ID as text or a single-byte error code.
func receiveUploadID(sock *transport.WebSocket) (string, error) {
	first, err := sock.Receive()
	if err != nil {
		if err == io.EOF {
			return "", fmt.Errorf("%w: connection closed without an error code", ErrHandshakeFailed)
		}
		return "", fmt.Errorf("%w: %v", ErrHandshakeFailed, err)
	}
	if len(first) == 1 {
		return "", ServerError(first[0])
	}
	if len(first) == 0 {
		return "", fmt.Errorf("%w: empty upload ID", ErrHandshakeFailed)
	}
	return string(first), nil
}

// watchServer consumes inbound messages during the upload. The server is
// silent unless it rejects the transfer with a single-byte error code.
func (u *Uploader) watchServer(sock *transport.WebSocket, tr *transfer.Transfer) {
	for {
		data, err := sock.Receive()
		if err != nil {
			return
		}
		if len(data) == 1 {
			serverErr := ServerError(data[0])
			logrus.WithFields(logrus.Fields{
				"function": "watchServer",
				"id":       tr.ID(),
				"error":    serverErr.Error(),
			}).Error("Server rejected upload")
			sock.Close()
			tr.Fail(transfer.CodeTransportFailure, serverErr)
			return
		}
	}
}
