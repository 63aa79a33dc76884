package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	conndomain "inboxhub-backend/internal/connection/domain"
	emaildomain "inboxhub-backend/internal/email/domain"
)

const listPageSize = 100

// Provider adapts the Gmail API to the MailProvider boundary. It never
// refreshes credentials itself; a 401 surfaces as ErrUnauthorized so the
// caller can go through the token manager.
type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

func (p *Provider) Name() conndomain.Provider {
	return conndomain.ProviderGmail
}

// ListMessages returns message identifiers newer than since, newest last.
// Gmail's after: query has whole-second granularity, so the same boundary
// second can be listed twice; the upsert path absorbs the overlap.
func (p *Provider) ListMessages(ctx context.Context, token *conndomain.OAuthToken, since time.Time, max int) ([]emaildomain.MessageRef, error) {
	srv, err := newGmailService(ctx, token)
	if err != nil {
		return nil, err
	}

	q := "in:anywhere"
	if !since.IsZero() {
		q = fmt.Sprintf("in:anywhere after:%d", since.Unix())
	}

	refs := make([]emaildomain.MessageRef, 0)
	pageToken := ""
	for {
		call := srv.Users.Messages.List("me").Q(q).MaxResults(listPageSize)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Context(ctx).Do()
		if err != nil {
			return nil, classifyAPIError(err)
		}
		for _, m := range resp.Messages {
			refs = append(refs, emaildomain.MessageRef{
				ProviderMessageID: m.Id,
				ThreadID:          m.ThreadId,
			})
			if max > 0 && len(refs) >= max {
				break
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" || (max > 0 && len(refs) >= max) {
			break
		}
	}

	// Gmail lists newest first; callers process oldest first
	for i, j := 0, len(refs)-1; i < j; i, j = i+1, j-1 {
		refs[i], refs[j] = refs[j], refs[i]
	}
	return refs, nil
}

// GetMessage fetches one full message and normalizes it
func (p *Provider) GetMessage(ctx context.Context, token *conndomain.OAuthToken, providerMessageID string) (*emaildomain.RemoteMessage, error) {
	srv, err := newGmailService(ctx, token)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", providerMessageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, classifyAPIError(err)
	}

	if msg.Payload == nil {
		// Some messages (notably drafts of other clients) come back without a
		// structured payload; fall back to the raw RFC 822 form.
		raw, err := srv.Users.Messages.Get("me", providerMessageID).Format("raw").Context(ctx).Do()
		if err != nil {
			return nil, classifyAPIError(err)
		}
		return convertRawMessage(raw)
	}

	return convertMessage(msg), nil
}

func newGmailService(ctx context.Context, token *conndomain.OAuthToken) (*gmailapi.Service, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token.AccessToken,
		TokenType:   "Bearer",
	})
	srv, err := gmailapi.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}
	return srv, nil
}

// classifyAPIError maps Gmail API failures onto the domain sentinels
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusUnauthorized:
			return fmt.Errorf("%w: %v", conndomain.ErrUnauthorized, err)
		case apiErr.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", emaildomain.ErrRateLimited, err)
		case apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", emaildomain.ErrProviderUnavailable, err)
		}
	}
	return err
}

func convertMessage(msg *gmailapi.Message) *emaildomain.RemoteMessage {
	headers := msg.Payload.Headers

	plainBody, htmlBody := getMessageBodies(msg.Payload)

	snippet := msg.Snippet
	if snippet == "" {
		snippet = makeSnippet(plainBody)
	}

	return &emaildomain.RemoteMessage{
		ProviderMessageID: msg.Id,
		ThreadID:          msg.ThreadId,
		Sender:            getHeader(headers, "From"),
		Recipients:        parseAddresses(getHeader(headers, "To")),
		CC:                parseAddresses(getHeader(headers, "Cc")),
		DateSent:          time.Unix(msg.InternalDate/1000, 0),
		Subject:           getHeader(headers, "Subject"),
		Snippet:           snippet,
		BodyText:          plainBody,
		BodyHTML:          htmlBody,
		Labels:            msg.LabelIds,
		HasAttachments:    hasAttachments(msg.Payload),
		IsRead:            !hasLabel(msg.LabelIds, "UNREAD"),
	}
}

// convertRawMessage parses the base64 RFC 822 form of a message
func convertRawMessage(msg *gmailapi.Message) (*emaildomain.RemoteMessage, error) {
	data, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		return nil, fmt.Errorf("unable to decode raw message: %v", err)
	}

	r, err := mail.CreateReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("unable to parse raw message: %v", err)
	}
	defer r.Close()

	out := &emaildomain.RemoteMessage{
		ProviderMessageID: msg.Id,
		ThreadID:          msg.ThreadId,
		DateSent:          time.Unix(msg.InternalDate/1000, 0),
		Labels:            msg.LabelIds,
		IsRead:            !hasLabel(msg.LabelIds, "UNREAD"),
	}
	out.Subject, _ = r.Header.Subject()
	if from, err := r.Header.AddressList("From"); err == nil && len(from) > 0 {
		out.Sender = from[0].String()
	}
	if to, err := r.Header.AddressList("To"); err == nil {
		for _, a := range to {
			out.Recipients = append(out.Recipients, a.Address)
		}
	}
	if cc, err := r.Header.AddressList("Cc"); err == nil {
		for _, a := range cc {
			out.CC = append(out.CC, a.Address)
		}
	}

	for {
		part, err := r.NextPart()
		if err == io.EOF {
			break
		} else if err != nil {
			break
		}
		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			if ct == "text/html" {
				out.BodyHTML = string(body)
			} else if out.BodyText == "" {
				out.BodyText = string(body)
			}
		case *mail.AttachmentHeader:
			out.HasAttachments = true
		}
	}

	out.Snippet = makeSnippet(out.BodyText)
	return out, nil
}

func getHeader(headers []*gmailapi.MessagePartHeader, name string) string {
	for _, header := range headers {
		if strings.EqualFold(header.Name, name) {
			return header.Value
		}
	}
	return ""
}

func getMessageBodies(payload *gmailapi.MessagePart) (string, string) {
	var plainBody, htmlBody string

	decode := func(part *gmailapi.MessagePart) string {
		if part.Body == nil || part.Body.Data == "" {
			return ""
		}
		data, err := base64.URLEncoding.DecodeString(part.Body.Data)
		if err != nil {
			return ""
		}
		return string(data)
	}

	if body := decode(payload); body != "" {
		if payload.MimeType == "text/html" {
			return "", body
		}
		return body, ""
	}

	var findBody func(parts []*gmailapi.MessagePart)
	findBody = func(parts []*gmailapi.MessagePart) {
		for _, part := range parts {
			switch part.MimeType {
			case "text/html":
				if body := decode(part); body != "" {
					htmlBody = body
				}
			case "text/plain":
				if body := decode(part); body != "" {
					plainBody = body
				}
			}
			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}
	findBody(payload.Parts)

	return plainBody, htmlBody
}

func hasAttachments(payload *gmailapi.MessagePart) bool {
	var found bool
	var walk func(parts []*gmailapi.MessagePart)
	walk = func(parts []*gmailapi.MessagePart) {
		for _, part := range parts {
			if part.Filename != "" && part.Body != nil && part.Body.AttachmentId != "" {
				found = true
				return
			}
			if len(part.Parts) > 0 {
				walk(part.Parts)
			}
		}
	}
	walk(payload.Parts)
	return found
}

func hasLabel(labels []string, labelID string) bool {
	for _, label := range labels {
		if label == labelID {
			return true
		}
	}
	return false
}

func parseAddresses(header string) []string {
	if header == "" {
		return nil
	}
	parsed, err := netmail.ParseAddressList(header)
	if err != nil {
		// Keep the raw value rather than drop the recipient
		parts := strings.Split(header, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if v := strings.TrimSpace(p); v != "" {
				out = append(out, v)
			}
		}
		return out
	}
	out := make([]string, 0, len(parsed))
	for _, a := range parsed {
		out = append(out, a.Address)
	}
	return out
}

func makeSnippet(body string) string {
	preview := strings.Join(strings.Fields(body), " ")
	if runes := []rune(preview); len(runes) > 200 {
		preview = string(runes[:200]) + "..."
	}
	return preview
}
