package service

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/errs"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
	"github.com/Astemirdum/bookstore-service/pkg/circuit_breaker"
	"github.com/Astemirdum/bookstore-service/pkg/pdfurl"
)

var errUpstream = errors.New("file host unavailable")

func (s *Service) ConvertPdfURL(raw string) (model.PdfURLInfo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.PdfURLInfo{}, errs.ErrEmptyURL
	}
	info := model.PdfURLInfo{
		Original:  raw,
		DirectURL: pdfurl.ConvertToDirect(raw),
	}
	if id, ok := pdfurl.ExtractGoogleDriveFileID(raw); ok {
		info.DriveFileID = id
		info.EmbedURL = pdfurl.GoogleDrivePreviewURL(id)
	}
	return info, nil
}

// CheckPdfURL normalizes raw and sends a HEAD to the result. Only links on
// the configured file hosts are fetched. Outages of one host open that
// host's breaker, after which its links report unreachable without a call
// until it recovers.
func (s *Service) CheckPdfURL(ctx context.Context, raw string) (model.PdfURLCheck, error) {
	info, err := s.ConvertPdfURL(raw)
	if err != nil {
		return model.PdfURLCheck{}, err
	}
	check := model.PdfURLCheck{URL: info.DirectURL}

	u, err := url.Parse(info.DirectURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return model.PdfURLCheck{}, errs.ErrFileHost
	}
	host, ok := s.fileHost(u.Hostname())
	if !ok {
		return model.PdfURLCheck{}, errs.ErrFileHost
	}

	var refused bool
	err = s.breakers.get(host).Call(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), http.NoBody)
		if err != nil {
			return err
		}
		resp, err := s.client.Do(req)
		if err != nil {
			if errors.Is(err, errRefusedAddress) || errors.Is(err, errRefusedRedirect) {
				refused = true
				return nil
			}
			return err
		}
		defer resp.Body.Close()
		check.Status = resp.StatusCode
		if resp.StatusCode >= http.StatusInternalServerError {
			return errUpstream
		}
		return nil
	})
	switch {
	case errors.Is(err, circuit_breaker.ErrOpenCB):
		s.log.Debug("pdf probe skipped, breaker open", zap.String("host", host), zap.String("url", check.URL))
	case err != nil:
		s.log.Info("pdf probe failed", zap.String("url", check.URL), zap.Error(err))
	case refused:
		s.log.Warn("pdf probe refused", zap.String("url", check.URL))
	default:
		check.Reachable = check.Status < http.StatusBadRequest
	}
	return check, nil
}
