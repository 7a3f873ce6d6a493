package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"virtwallet/internal/api"
	"virtwallet/internal/datasync"
)

// DefaultParserID is the statement parser used when none is selected.
const DefaultParserID = "ulster_csv"

// Uploader implements the statement-upload protocol: ask the API for a
// pre-signed target for the file name, then PUT the file body straight
// to that target.
type Uploader struct {
	client datasync.Client
	put    func(ctx context.Context, presignedURL, contentType string, payload io.Reader) error
	log    *slog.Logger
}

func NewUploader(client datasync.Client, log *slog.Logger) *Uploader {
	return &Uploader{client: client, put: api.UploadTo, log: log}
}

// Upload sends a bank statement for parsing into the wallet.
func (u *Uploader) Upload(ctx context.Context, accountID, walletID, parserID, fileName, contentType string, payload io.Reader) error {
	if parserID == "" {
		parserID = DefaultParserID
	}

	path := fmt.Sprintf("%s/upload/%s", walletPath(accountID, walletID), parserID)
	query := url.Values{"fileName": {fileName}}

	raw, err := u.client.Get(ctx, path, query)
	if err != nil {
		return fmt.Errorf("request upload target: %w", err)
	}

	var presignedURL string
	if err := json.Unmarshal(raw, &presignedURL); err != nil {
		return fmt.Errorf("decode upload target: %w", err)
	}

	u.log.Debug("uploading statement", "wallet_id", walletID, "parser_id", parserID, "file", fileName)
	if err := u.put(ctx, presignedURL, contentType, payload); err != nil {
		return fmt.Errorf("upload statement %s: %w", fileName, err)
	}
	return nil
}
