package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/soursound/internal/noise"
	"github.com/MrWong99/soursound/internal/observe"
	"github.com/MrWong99/soursound/internal/session"
)

// MessageAPI is the subset of [discordgo.Session] the synchronizer uses.
type MessageAPI interface {
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ MessageAPI = (*discordgo.Session)(nil)

// Status classifies the result of a best-effort chat operation.
type Status int

const (
	// OK means the operation succeeded.
	OK Status = iota
	// Stale means the target no longer exists or is no longer reachable.
	// Expected in normal operation.
	Stale
	// Fatal is any other failure.
	Fatal
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Stale:
		return "stale"
	default:
		return "fatal"
	}
}

// Classify maps an error from the chat API to a [Status].
func Classify(err error) Status {
	if err == nil {
		return OK
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return Fatal
	}
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeMissingAccess:
			return Stale
		}
	}
	if rest.Response != nil {
		switch rest.Response.StatusCode {
		case http.StatusNotFound, http.StatusForbidden:
			return Stale
		}
	}
	return Fatal
}

// Outcome is how a reconcile reached the user.
type Outcome string

const (
	// Edited means the remembered panel was updated in place.
	Edited Outcome = "edited"
	// Replaced means the remembered panel could not be edited and a new one
	// was posted.
	Replaced Outcome = "replaced"
	// Created means no panel was remembered and a new one was posted.
	Created Outcome = "created"
)

// Synchronizer keeps a session's posted control panel in line with its
// settings. It holds no state of its own; the panel reference lives in
// [session.State.View].
type Synchronizer struct {
	api     MessageAPI
	catalog *noise.Catalog
	metrics *observe.Metrics
}

// NewSynchronizer creates a Synchronizer. A nil metrics uses
// [observe.DefaultMetrics].
func NewSynchronizer(api MessageAPI, catalog *noise.Catalog, metrics *observe.Metrics) *Synchronizer {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Synchronizer{api: api, catalog: catalog, metrics: metrics}
}

// Reconcile makes the panel reflect st.Settings. It edits the remembered
// panel in place when possible; otherwise it posts a new panel into
// channelID and records it in st.View. Only a failure of that final post is
// returned. The caller must hold the session lock.
func (s *Synchronizer) Reconcile(ctx context.Context, st *session.State, channelID string) (out Outcome, err error) {
	ctx, span := observe.StartSessionSpan(ctx, "remote.Reconcile", st.Key, channelID)
	defer func() {
		span.SetAttributes(attribute.String("outcome", string(out)))
		observe.EndSpan(span, err)
	}()

	v := Render(st.Key, st.Settings, s.catalog)
	embeds := []*discordgo.MessageEmbed{Embed(v)}
	components := Components(v)

	out = Created
	if ref := st.View; ref != nil {
		edit := discordgo.NewMessageEdit(ref.ChannelID, ref.MessageID)
		edit.Embeds = &embeds
		edit.Components = &components
		_, editErr := s.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
		if editErr == nil {
			s.metrics.RecordReconcile(ctx, string(Edited))
			return Edited, nil
		}
		s.logFallthrough(ctx, st.Key, ref, editErr)
		out = Replaced
	}

	msg, err := s.api.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     embeds,
		Components: components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		s.metrics.RecordReconcile(ctx, "failed")
		return "", fmt.Errorf("remote: post panel in %s: %w", channelID, err)
	}
	st.View = &session.ViewRef{ChannelID: msg.ChannelID, MessageID: msg.ID}
	if st.View.ChannelID == "" {
		st.View.ChannelID = channelID
	}
	s.metrics.RecordReconcile(ctx, string(out))
	return out, nil
}

func (s *Synchronizer) logFallthrough(ctx context.Context, key string, ref *session.ViewRef, err error) {
	log := observe.Logger(ctx).With("guild", key, "channel", ref.ChannelID, "message", ref.MessageID, "err", err)
	if Classify(err) == Stale {
		log.Debug("remote: panel gone, posting a new one")
		return
	}
	log.Warn("remote: failed to edit panel, posting a new one")
}
