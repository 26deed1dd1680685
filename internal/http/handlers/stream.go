// Package handlers wires the HTTP surface onto StreamController: raw
// Chi routes for the streaming endpoints, whose bodies commit bytes
// before any redirect or error status could be set by a Huma
// StreamResponse, plus documentation-only Huma registrations so they
// still show up in the OpenAPI spec.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/lanestream/broadcastcore/internal/clock"
	"github.com/lanestream/broadcastcore/internal/concat"
	"github.com/lanestream/broadcastcore/internal/encoder"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/store"
	"github.com/lanestream/broadcastcore/internal/streamcontroller"
	"github.com/lanestream/broadcastcore/pkg/m3u"
)

const (
	contentTypeMPEGTS = "video/mp2t"
	contentTypeM3U8   = "application/x-mpegURL"
	contentTypeM3U    = "video/x-mpegurl"
)

// StreamHandler serves the HTTP surface: the four streaming endpoints
// (/setup, /video, /radio, /stream), the ffconcat manifest /playlist,
// the HLS-pointer /m3u8, and the two media-player M3U routes.
type StreamHandler struct {
	Controller *streamcontroller.Controller
	Store      store.Store
	Clock      clock.Clock
	Logger     *slog.Logger
}

// NewStreamHandler builds a StreamHandler over controller.
func NewStreamHandler(controller *streamcontroller.Controller, st store.Store, clk clock.Clock, logger *slog.Logger) *StreamHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHandler{Controller: controller, Store: st, Clock: clk, Logger: logger}
}

// RegisterChiRoutes registers the eight HTTP-surface routes as raw Chi
// handlers.
func (h *StreamHandler) RegisterChiRoutes(router chi.Router) {
	router.Get("/setup", h.handleSetup)
	router.Get("/video", h.handleVideo)
	router.Get("/radio", h.handleRadio)
	router.Get("/stream", h.handleStream)
	router.Get("/playlist", h.handlePlaylist)
	router.Get("/m3u8", h.handleM3U8)
	router.Get("/media-player/{number}.m3u", h.handleMediaPlayerM3U)
	router.Get("/media-player/radio/{number}.m3u", h.handleMediaPlayerRadioM3U)
}

// Register adds documentation-only Huma operations for the four
// streaming endpoints, so they appear in the OpenAPI spec even though
// Chi serves the actual requests. Huma's StreamResponse commits the
// response status before the handler body runs, which is incompatible
// with substituting an in-stream offline item after encoder startup
// has already begun.
func (h *StreamHandler) Register(api huma.API) {
	registerStreamDoc(api, "getSetup", "GET", "/setup", "Static placeholder stream", "Served when no channel has ever been configured.")
	registerStreamDoc(api, "getVideo", "GET", "/video", "Channel video stream", "The continuously-looping concat stream for one channel.")
	registerStreamDoc(api, "getRadio", "GET", "/radio", "Channel audio-only stream", "The continuously-looping, video-stripped concat stream for one channel.")
	registerStreamDoc(api, "getStream", "GET", "/stream", "Single lineup item stream", "One resolved lineup item, encoded and streamed once; reopened by the concat outer loop on EOF.")
}

type streamDocInput struct {
	Channel string `query:"channel" doc:"Channel number or UUID"`
}

func registerStreamDoc(api huma.API, operationID, method, path, summary, description string) {
	huma.Register(api, huma.Operation{
		OperationID: operationID,
		Method:      method,
		Path:        path,
		Summary:     summary,
		Description: description,
		Tags:        []string{"Streaming"},
		Responses: map[string]*huma.Response{
			"200": {Description: "video/mp2t byte stream"},
			"400": {Description: "missing or invalid channel reference"},
			"404": {Description: "unknown channel"},
			"500": {Description: "encoder missing or resolve failure"},
		},
	}, func(_ context.Context, _ *streamDocInput) (*huma.StreamResponse, error) {
		return nil, huma.Error500InternalServerError("this endpoint is served by a raw Chi handler")
	})
}

// writeStreamError maps err onto the §7 error taxonomy's HTTP status,
// defaulting to 500 for anything not already typed as a *models.StreamError.
func (h *StreamHandler) writeStreamError(w http.ResponseWriter, err error) {
	var streamErr *models.StreamError
	errors.As(err, &streamErr)
	if streamErr == nil {
		h.Logger.Error("unclassified stream error", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	status := streamErr.HTTPStatus()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error("stream error", slog.String("kind", string(streamErr.Kind)), slog.Any("error", err))
	}
	http.Error(w, streamErr.Error(), status)
}

// loadSettings fetches the encoder tuning every streaming handler needs
// and verifies the configured binary exists (step 3).
func (h *StreamHandler) loadSettings(ctx context.Context, w http.ResponseWriter) (*store.FFmpegSettings, bool) {
	settings, err := h.Store.FFmpegSettings(ctx)
	if err != nil {
		h.writeStreamError(w, err)
		return nil, false
	}
	if err := h.Controller.CheckEncoderAvailable(settings); err != nil {
		h.writeStreamError(w, err)
		return nil, false
	}
	return settings, true
}

// handleSetup serves the static "no channels configured" placeholder.
func (h *StreamHandler) handleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	settings, ok := h.loadSettings(ctx, w)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", contentTypeMPEGTS)
	if _, err := h.Controller.Serve(ctx, &models.Channel{}, streamcontroller.SetupItem(), settings, false, w); err != nil {
		h.Logger.Warn("setup stream ended", slog.Any("error", err))
	}
}

// handleVideo serves /video: an outer, stream-copying ffmpeg process
// that demuxes the self-referencing /playlist manifest, reopening it
// forever as each /stream entry EOFs.
func (h *StreamHandler) handleVideo(w http.ResponseWriter, r *http.Request) {
	h.serveOuterLoop(w, r, false)
}

// handleRadio serves /radio: the same outer loop as /video, with the
// audio-only flag threaded through to every inner /stream request.
func (h *StreamHandler) handleRadio(w http.ResponseWriter, r *http.Request) {
	h.serveOuterLoop(w, r, true)
}

func (h *StreamHandler) serveOuterLoop(w http.ResponseWriter, r *http.Request, audioOnly bool) {
	ctx := r.Context()
	channelRef := r.URL.Query().Get("channel")

	if _, err := h.Controller.LookupChannel(ctx, channelRef); err != nil {
		h.writeStreamError(w, err)
		return
	}

	settings, ok := h.loadSettings(ctx, w)
	if !ok {
		return
	}

	session := h.Controller.Sessions.New()
	playlistURL := fmt.Sprintf("%s/playlist?channel=%s&session=%s", baseURL(r), channelRef, session)
	if audioOnly {
		playlistURL += "&audioOnly=1"
	}

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "concat", "-safe", "0", "-stream_loop", "-1",
		"-i", playlistURL,
		"-c", "copy", "-f", "mpegts", "-",
	}
	proc := encoder.New(settings.BinaryPath, args)
	if err := proc.Start(ctx); err != nil {
		h.writeStreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeMPEGTS)
	if err := streamcontroller.PumpToWriter(ctx, proc, w); err != nil {
		h.Logger.Warn("outer concat loop ended", slog.String("channel", channelRef), slog.Any("error", err))
	}
}

// handleStream serves /stream: a single resolved lineup item, encoded
// once. The concat outer loop (ffmpeg's own -f concat demuxer, driven
// by /playlist) is what reopens this on EOF or encoder crash.
func (h *StreamHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	channelRef := q.Get("channel")
	sessionID := q.Get("session")
	audioOnly := q.Get("audioOnly") == "1"
	// Step 4: first==0 is the trigger for the stabilising stub, not
	// first==1 — the client's very first concat splice needs a cheap,
	// instantly-available item while the real resolve is still settling.
	useLoadingStub := q.Get("first") == "0"

	channel, err := h.Controller.LookupChannel(ctx, channelRef)
	if err != nil {
		h.writeStreamError(w, err)
		return
	}

	settings, ok := h.loadSettings(ctx, w)
	if !ok {
		return
	}

	var resolved *models.ResolvedItem
	if useLoadingStub {
		resolved = streamcontroller.LoadingItem()
	} else {
		resolved, err = h.Controller.Resolve(ctx, channel, h.Clock.NowMs(), sessionID, false)
		if err != nil {
			h.writeStreamError(w, err)
			return
		}
	}

	w.Header().Set("Content-Type", contentTypeMPEGTS)
	bytesProduced, err := h.Controller.Serve(ctx, channel, resolved, settings, audioOnly, w)
	if err != nil {
		// Only a session that never got a single byte out counts as a
		// failed attempt; a client disconnecting mid-stream after hours
		// of good playback must not trip the throttle.
		if sessionID != "" && !bytesProduced {
			h.Controller.Cache.RecordAttempt(sessionID, models.FromEpochMillis(h.Clock.NowMs()))
		}
		h.Logger.Warn("item stream ended", slog.String("channel", channelRef), slog.Any("error", err))
	}
}

// handlePlaylist serves /playlist: the two-entry ffconcat manifest that
// makes /video and /radio's outer ffmpeg process treat a sequence of
// /stream requests as one infinite file.
func (h *StreamHandler) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	channelRef := q.Get("channel")
	audioOnly := q.Get("audioOnly") == "1"

	if _, err := h.Controller.LookupChannel(ctx, channelRef); err != nil {
		h.writeStreamError(w, err)
		return
	}

	session := q.Get("session")
	if session == "" {
		session = h.Controller.Sessions.New().String()
	}

	streamURL := fmt.Sprintf("%s/stream?channel=%s&session=%s", baseURL(r), channelRef, session)
	if audioOnly {
		streamURL += "&audioOnly=1"
	}

	w.Header().Set("Content-Type", "text/plain")
	if err := concat.WriteManifest(w, streamURL); err != nil {
		h.Logger.Warn("writing playlist manifest", slog.Any("error", err))
	}
}

// handleM3U8 serves /m3u8: a playlist pointing an HLS-capable player at
// the channel's continuous video stream. This repository's encoder
// output is always a raw mpegts byte stream (Serve pipes stdout
// directly); there is no segment-file HTTP surface an HLS master
// playlist could reference, so this is a single-entry pointer playlist
// rather than a real #EXT-X-STREAM-INF variant manifest.
func (h *StreamHandler) handleM3U8(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelRef := r.URL.Query().Get("channel")

	channel, err := h.Controller.LookupChannel(ctx, channelRef)
	if err != nil {
		h.writeStreamError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypeM3U8)
	writer := m3u.NewWriter(w)
	entry := m3u.Entry{Title: channel.Name, URL: fmt.Sprintf("%s/video?channel=%s", baseURL(r), channelRef), ChannelNumber: channel.Number}
	if err := writer.WriteEntry(entry); err != nil {
		h.Logger.Warn("writing m3u8 playlist", slog.Any("error", err))
	}
}

// handleMediaPlayerM3U serves /media-player/:number.m3u: a one-line M3U
// a media player can add as a single channel entry. fast=1 points it
// directly at /video (raw passthrough re-tune); otherwise it points at
// /m3u8.
func (h *StreamHandler) handleMediaPlayerM3U(w http.ResponseWriter, r *http.Request) {
	h.handleMediaPlayerEntry(w, r, false)
}

// handleMediaPlayerRadioM3U serves /media-player/radio/:number.m3u,
// always pointing at /radio.
func (h *StreamHandler) handleMediaPlayerRadioM3U(w http.ResponseWriter, r *http.Request) {
	h.handleMediaPlayerEntry(w, r, true)
}

func (h *StreamHandler) handleMediaPlayerEntry(w http.ResponseWriter, r *http.Request, radio bool) {
	ctx := r.Context()
	numberParam := chi.URLParam(r, "number")
	number, err := strconv.Atoi(numberParam)
	if err != nil || number <= 0 {
		http.Error(w, fmt.Sprintf("invalid channel number %q", numberParam), http.StatusBadRequest)
		return
	}

	channel, err := h.Controller.LookupChannel(ctx, numberParam)
	if err != nil {
		h.writeStreamError(w, err)
		return
	}

	var target string
	switch {
	case radio:
		target = fmt.Sprintf("%s/radio?channel=%d", baseURL(r), number)
	case r.URL.Query().Get("fast") == "1":
		target = fmt.Sprintf("%s/video?channel=%d", baseURL(r), number)
	default:
		target = fmt.Sprintf("%s/m3u8?channel=%d", baseURL(r), number)
	}

	w.Header().Set("Content-Type", contentTypeM3U)
	writer := m3u.NewWriter(w)
	entry := m3u.Entry{Title: channel.Name, URL: target, ChannelNumber: channel.Number}
	if err := writer.WriteEntry(entry); err != nil {
		h.Logger.Warn("writing media-player m3u", slog.Any("error", err))
	}
}

// baseURL reconstructs this server's own externally-reachable origin
// from the incoming request, so handlers can build self-referencing
// URLs (the /playlist manifest's /stream entries, the outer concat
// process's /playlist input) without a separate base-URL config knob.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
