package http

import (
	"errors"
	"fmt"
	"net/http"

	"tamerun/internal/core"
	"tamerun/internal/services"
)

// multipartOverhead is allowed on top of the image limit for form fields
// and part headers.
const multipartOverhead = 1 << 20

type receiptReview struct {
	Analysis   services.ReceiptAnalysis
	Categories []core.Category
	Today      core.Date
}

// handleAnalyzeReceipt reads the uploaded photo, analyzes it and returns the
// review partial so the user can fix items before registering them.
func (s *Server) handleAnalyzeReceipt(w http.ResponseWriter, r *http.Request) {
	if s.deps.Receipts == nil || !s.deps.Receipts.Enabled() {
		fail(w, r, "Receipt analysis requested while disabled", services.ErrAnalysisDisabled)
		return
	}

	maxBytes := s.deps.Receipts.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes + multipartOverhead); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			fail(w, r, "Receipt upload too large", services.ErrImageTooLarge)
			return
		}
		BadRequestError("Invalid upload").Write(w)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	image, mimeType, err := ReadReceiptUpload(r, maxBytes)
	if err != nil {
		fail(w, r, "Receipt upload rejected", err)
		return
	}

	analysis, err := s.deps.Receipts.Analyze(r.Context(), owner(r), image, mimeType)
	if err != nil {
		fail(w, r, "Receipt analysis failed", err)
		return
	}

	cats, err := s.deps.Catalog.List(r.Context(), core.KindExpense)
	if err != nil {
		fail(w, r, "Load categories failed", err)
		return
	}

	s.render(w, r, http.StatusOK, "receipt_review", receiptReview{
		Analysis:   analysis,
		Categories: cats,
		Today:      s.today(),
	})
}

// handleRegisterReceipt stores one expense per category of the reviewed
// receipt.
func (s *Server) handleRegisterReceipt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request format").Write(w)
		return
	}

	extraction, imageURL, err := ParseReceiptReviewForm(r.PostForm)
	if err != nil {
		fail(w, r, "Receipt review rejected", err)
		return
	}
	if imageURL != "" {
		if s.deps.Receipts == nil {
			err = services.ErrForeignImage
		} else {
			err = s.deps.Receipts.CheckImageURL(owner(r), imageURL)
		}
		if err != nil {
			fail(w, r, "Receipt image rejected", err)
			return
		}
	}

	today := s.today()
	ids, err := s.deps.Transactions.RegisterReceipt(r.Context(), owner(r), extraction, today, imageURL)
	if err != nil {
		fail(w, r, "Register receipt failed", err)
		return
	}

	SuccessResponse(fmt.Sprintf("Receipt registered as %d expense(s)", len(ids))).
		TriggerReceiptRegistered(len(ids)).
		TriggerTransactionCreated(core.MonthOf(today).String(), string(core.KindExpense)).
		Write(w)
}
