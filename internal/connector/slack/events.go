package slackconn

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/dupewatch-io/dupewatch/pkg/protocol"
)

// replayWindow bounds how old a signed request may be.
const replayWindow = 5 * time.Minute

// NotificationHandler processes normalized inbound notifications.
type NotificationHandler func(ctx context.Context, n protocol.Notification) error

// Receiver terminates Slack's webhook callbacks: the Events API endpoint
// (mentions, url_verification handshake) and the interactivity endpoint
// (button clicks, modal submissions). Each request is verified against the
// signing secret before anything else.
type Receiver struct {
	signingSecret string
	botUserID     string
	handler       NotificationHandler
	logger        *slog.Logger
	now           func() time.Time
}

// NewReceiver creates a webhook receiver.
func NewReceiver(signingSecret, botUserID string, handler NotificationHandler, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{
		signingSecret: signingSecret,
		botUserID:     botUserID,
		handler:       handler,
		logger:        logger,
		now:           time.Now,
	}
}

// HandleEvents serves the Events API endpoint.
func (rc *Receiver) HandleEvents(w http.ResponseWriter, r *http.Request) {
	body, ok := rc.readVerified(w, r)
	if !ok {
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "invalid event payload", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		// Liveness handshake: echo the challenge back verbatim.
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "invalid challenge payload", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(challenge.Challenge))
		return

	case slackevents.CallbackEvent:
		var eventID string
		if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok {
			eventID = cb.EventID
		}

		mention, ok := event.InnerEvent.Data.(*slackevents.AppMentionEvent)
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		if mention.User == rc.botUserID {
			w.WriteHeader(http.StatusOK)
			return
		}

		n := protocol.Notification{
			ID:       eventID,
			Kind:     protocol.KindMention,
			Channel:  mention.Channel,
			ThreadTS: mention.TimeStamp,
			UserID:   mention.User,
			Text:     StripMention(mention.Text, rc.botUserID),
		}
		rc.dispatch(w, r, n)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// HandleInteractions serves the interactivity endpoint; payloads arrive
// form-encoded in the "payload" field.
func (rc *Receiver) HandleInteractions(w http.ResponseWriter, r *http.Request) {
	body, ok := rc.readVerified(w, r)
	if !ok {
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil || form.Get("payload") == "" {
		http.Error(w, "missing payload", http.StatusBadRequest)
		return
	}

	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	switch cb.Type {
	case slack.InteractionTypeBlockActions:
		if len(cb.ActionCallback.BlockActions) == 0 {
			w.WriteHeader(http.StatusOK)
			return
		}
		action := cb.ActionCallback.BlockActions[0]
		if action.ActionID != OpenTicketModalAction {
			w.WriteHeader(http.StatusOK)
			return
		}

		var draft protocol.Draft
		if err := json.Unmarshal([]byte(action.Value), &draft); err != nil {
			http.Error(w, "invalid draft payload", http.StatusBadRequest)
			return
		}

		threadTS := cb.Container.ThreadTs
		if threadTS == "" {
			threadTS = cb.Container.MessageTs
		}
		n := protocol.Notification{
			ID:        cb.TriggerID,
			Kind:      protocol.KindAction,
			Channel:   cb.Channel.ID,
			ThreadTS:  threadTS,
			UserID:    cb.User.ID,
			TriggerID: cb.TriggerID,
			Draft:     &draft,
		}
		rc.dispatch(w, r, n)
		return

	case slack.InteractionTypeViewSubmission:
		if cb.View.CallbackID != TicketModalCallbackID {
			w.WriteHeader(http.StatusOK)
			return
		}

		fields, draft, err := SubmittedTicket(cb.View)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		n := protocol.Notification{
			ID:       cb.View.ID,
			Kind:     protocol.KindSubmission,
			Channel:  draft.Channel,
			ThreadTS: draft.ThreadTS,
			UserID:   cb.User.ID,
			Text:     draft.UserMessage,
			Fields:   &fields,
			Draft:    &draft,
		}
		if err := rc.handler(r.Context(), n); err != nil {
			rc.logger.Error("submission handler error", "error", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		// Empty JSON body closes the modal.
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("{}"))
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (rc *Receiver) dispatch(w http.ResponseWriter, r *http.Request, n protocol.Notification) {
	if err := rc.handler(r.Context(), n); err != nil {
		rc.logger.Error("notification handler error", "kind", n.Kind, "id", n.ID, "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// readVerified reads the request body and checks the v0 signature. On
// failure it writes the error response and returns ok=false.
func (rc *Receiver) readVerified(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return nil, false
	}

	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")
	if !rc.verifySignature(timestamp, signature, body) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}

func (rc *Receiver) verifySignature(timestamp, signature string, body []byte) bool {
	if timestamp == "" || signature == "" {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := rc.now().Sub(time.Unix(ts, 0))
	if age > replayWindow || age < -replayWindow {
		return false
	}

	expected := ComputeSignature(timestamp, body, rc.signingSecret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// ComputeSignature generates a v0 request signature for testing/external use.
func ComputeSignature(timestamp string, body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:", timestamp)
	mac.Write(body)
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
