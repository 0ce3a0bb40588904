package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tamerun/internal/core"
	"tamerun/internal/log"
	"tamerun/internal/ports"
)

var (
	ErrEmptyImage       = errors.New("receipt image is empty")
	ErrImageTooLarge    = errors.New("receipt image is too large")
	ErrUnsupportedImage = errors.New("receipt must be an image")
	ErrAnalysisDisabled = errors.New("receipt analysis is not configured")
	ErrForeignImage     = errors.New("receipt image does not belong to this account")
)

// ReceiptAnalysis is a normalized extraction plus where the image was kept.
type ReceiptAnalysis struct {
	Extraction core.ReceiptExtraction
	ImageURL   string
}

// DefaultReceiptMaxBytes applies when ReceiptConfig.MaxBytes is not set.
const DefaultReceiptMaxBytes = 10 << 20

type ReceiptConfig struct {
	MaxBytes int64
	Timeout  time.Duration
}

type ReceiptService struct {
	analyzer ports.ReceiptAnalyzer
	images   ports.ImageStore
	catalog  *CategoryCatalog
	config   ReceiptConfig
	logger   *log.Logger
}

// NewReceiptService accepts a nil analyzer (analysis disabled) and a nil
// image store (images are not kept).
func NewReceiptService(analyzer ports.ReceiptAnalyzer, images ports.ImageStore, catalog *CategoryCatalog, config ReceiptConfig, logger *log.Logger) *ReceiptService {
	if config.MaxBytes <= 0 {
		config.MaxBytes = DefaultReceiptMaxBytes
	}
	return &ReceiptService{
		analyzer: analyzer,
		images:   images,
		catalog:  catalog,
		config:   config,
		logger:   logger.WithComponent(log.ComponentReceipt),
	}
}

func (s *ReceiptService) Enabled() bool {
	return s.analyzer != nil
}

// CheckImageURL accepts an empty url or one the image store issued to owner.
// The url comes back from the review form, so it is not trusted.
func (s *ReceiptService) CheckImageURL(owner, url string) error {
	if url == "" {
		return nil
	}
	if s.images == nil || !s.images.OwnsReceipt(owner, url) {
		return ErrForeignImage
	}
	return nil
}

// MaxBytes is the largest accepted image.
func (s *ReceiptService) MaxBytes() int64 {
	return s.config.MaxBytes
}

// Analyze sends the image to the analyzer with the user's expense category
// names as the vocabulary and normalizes the answer.
func (s *ReceiptService) Analyze(ctx context.Context, owner string, image []byte, mimeType string) (ReceiptAnalysis, error) {
	if s.analyzer == nil {
		return ReceiptAnalysis{}, ErrAnalysisDisabled
	}
	if len(image) == 0 {
		return ReceiptAnalysis{}, ErrEmptyImage
	}
	if int64(len(image)) > s.config.MaxBytes {
		return ReceiptAnalysis{}, ErrImageTooLarge
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return ReceiptAnalysis{}, fmt.Errorf("%w: %q", ErrUnsupportedImage, mimeType)
	}

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	names, err := s.catalog.Names(ctx, core.KindExpense)
	if err != nil {
		return ReceiptAnalysis{}, err
	}

	var imageURL string
	if s.images != nil {
		imageURL, err = s.images.PutReceipt(ctx, owner, image, mimeType)
		if err != nil {
			s.logger.WarnContext(ctx, "Failed to store receipt image, continuing without it",
				log.FieldUserID, owner,
				log.FieldError, err)
			imageURL = ""
		}
	}

	start := time.Now()
	raw, err := s.analyzer.AnalyzeReceipt(ctx, image, mimeType, names)
	if err != nil {
		return ReceiptAnalysis{}, fmt.Errorf("analyze receipt: %w", err)
	}

	extraction, err := core.NormalizeReceiptPayload(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Receipt payload rejected",
			log.FieldUserID, owner,
			log.FieldError, err,
			"raw_length", len(raw))
		return ReceiptAnalysis{}, err
	}

	s.logger.InfoContext(ctx, "Receipt analyzed",
		log.FieldUserID, owner,
		log.FieldOperation, log.OpAnalyze,
		log.FieldReceiptSize, len(image),
		log.FieldItemCount, len(extraction.Items),
		log.FieldDuration, time.Since(start).Milliseconds())

	return ReceiptAnalysis{Extraction: extraction, ImageURL: imageURL}, nil
}
