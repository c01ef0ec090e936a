package quote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/quotedesk/backend/internal/domain/quote"
	"github.com/quotedesk/backend/internal/domain/shared"
)

// PublicQuoteService serves the unauthenticated signing surface. Every
// read goes through the redacted projection; the full aggregate never
// leaves this service.
type PublicQuoteService struct {
	quoteRepo      quote.Repository
	signatures     SignatureStore
	cache          ProjectionCache
	eventPublisher shared.EventPublisher
}

// NewPublicQuoteService creates a new PublicQuoteService
func NewPublicQuoteService(quoteRepo quote.Repository, signatures SignatureStore) *PublicQuoteService {
	return &PublicQuoteService{
		quoteRepo:  quoteRepo,
		signatures: signatures,
	}
}

// SetProjectionCache enables read-through caching of public projections
func (s *PublicQuoteService) SetProjectionCache(cache ProjectionCache) {
	s.cache = cache
}

// SetEventPublisher sets the event publisher for cross-context integration
func (s *PublicQuoteService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetByPublicID retrieves the redacted projection of a quote by its
// public identifier. Cache failures fall through to the repository.
func (s *PublicQuoteService) GetByPublicID(ctx context.Context, publicID string) (*PublicQuoteResponse, error) {
	if s.cache != nil {
		if payload, err := s.cache.Get(ctx, publicID); err == nil && payload != nil {
			var cached PublicQuoteResponse
			if err := json.Unmarshal(payload, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	q, err := s.quoteRepo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	response := ToPublicQuoteResponse(q)
	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			_ = s.cache.Set(ctx, publicID, payload)
		}
	}
	return &response, nil
}

// Sign records a client signature on the quote behind the public id.
// The signability and input guards all run before the image is uploaded
// so a doomed submission never leaves an orphan object in storage.
func (s *PublicQuoteService) Sign(ctx context.Context, publicID string, req SignQuoteRequest, originAddress string) (*PublicQuoteResponse, error) {
	q, err := s.quoteRepo.FindByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	if err := q.CanSign(); err != nil {
		return nil, err
	}

	signerName := strings.TrimSpace(req.Name)
	if signerName == "" {
		return nil, shared.NewValidationError("Signer name cannot be empty")
	}

	image, contentType, err := decodeSignatureImage(req.ImageData)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("signatures/%s/%s", q.ID, uuid.New())
	if err := s.signatures.Put(ctx, key, image, contentType); err != nil {
		return nil, err
	}

	if err := q.Sign(signerName, key, originAddress); err != nil {
		return nil, err
	}

	if err := s.quoteRepo.SaveWithLock(ctx, q); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, publicID)
	}
	if s.eventPublisher != nil {
		for _, event := range q.GetDomainEvents() {
			_ = s.eventPublisher.Publish(ctx, event)
		}
		q.ClearDomainEvents()
	}

	response := ToPublicQuoteResponse(q)
	return &response, nil
}

// decodeSignatureImage decodes a base64 signature payload, accepting both
// bare base64 and data URLs. Returns the raw bytes and a content type.
func decodeSignatureImage(data string) ([]byte, string, error) {
	contentType := "image/png"
	if strings.HasPrefix(data, "data:") {
		idx := strings.Index(data, ";base64,")
		if idx < 0 {
			return nil, "", shared.NewValidationError("Signature image must be base64 encoded")
		}
		if mediaType := data[len("data:"):idx]; mediaType != "" {
			contentType = mediaType
		}
		data = data[idx+len(";base64,"):]
	}

	image, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, "", shared.NewValidationError("Signature image is not valid base64 data")
	}
	if len(image) == 0 {
		return nil, "", shared.NewValidationError("Signature image cannot be empty")
	}
	return image, contentType, nil
}
