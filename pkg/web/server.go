// Package web serves the interactive front end: an upload form, a plain HTTP caption
// endpoint and a websocket endpoint, all backed by the same caption pipeline.
package web

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"k8s.io/klog/v2"

	"github.com/menta2k/image-captioner/pkg/processing"
	"github.com/menta2k/image-captioner/pkg/types"
)

// MaxUploadSize caps the accepted image payload
const MaxUploadSize = 32 << 20

// Describer turns an image into display text
type Describer interface {
	Describe(ctx context.Context, img image.Image, style types.CaptionStyle) (string, error)
}

// Request is a websocket caption request
type Request struct {
	Style string `json:"style"`
	Image string `json:"image"` // base64 encoded file content
}

// Response is a websocket caption reply. Exactly one field is set.
type Response struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Server handles front end requests
type Server struct {
	describer Describer
	processor *processing.Processor
	upgrader  websocket.Upgrader
	timeout   time.Duration
}

// NewServer creates a server around a describer
func NewServer(d Describer, p *processing.Processor) *Server {
	return &Server{
		describer: d,
		processor: p,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		timeout: 5 * time.Minute,
	}
}

// SetTimeout bounds a single caption request
func (s *Server) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Routes returns the HTTP handler for the front end
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /api/caption", s.handleCaption)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return mux
}

// badRequest marks errors caused by the client input
type badRequest struct{ err error }

func (b badRequest) Error() string { return b.err.Error() }
func (b badRequest) Unwrap() error { return b.err }

func (s *Server) describe(ctx context.Context, data []byte, style string) (string, error) {
	st := types.StyleDefault
	if style != "" {
		var err error
		if st, err = types.ParseStyle(style); err != nil {
			return "", badRequest{err}
		}
	}

	img, err := s.processor.DecodeImage(data)
	if err != nil {
		return "", badRequest{err}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.describer.Describe(ctx, img, st)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, types.Styles()); err != nil {
		klog.Errorf("render index: %v", err)
	}
}

func (s *Server) handleCaption(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		http.Error(w, fmt.Sprintf("invalid form: %v", err), http.StatusBadRequest)
		return
	}

	f, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "missing image", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		http.Error(w, fmt.Sprintf("read image: %v", err), http.StatusBadRequest)
		return
	}

	text, err := s.describe(r.Context(), data, r.FormValue("style"))
	if err != nil {
		status := http.StatusInternalServerError
		var br badRequest
		if errors.As(err, &br) {
			status = http.StatusBadRequest
		}
		klog.Warningf("caption request failed: %v", err)
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		klog.Warningf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(MaxUploadSize * 2)

	klog.V(1).Infof("websocket client connected: %s", r.RemoteAddr)

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				klog.Warningf("websocket read: %v", err)
			}
			return
		}

		var resp Response
		data, err := base64.StdEncoding.DecodeString(req.Image)
		if err == nil {
			resp.Text, err = s.describe(r.Context(), data, req.Style)
		}
		if err != nil {
			resp = Response{Error: err.Error()}
		}

		if err := conn.WriteJSON(resp); err != nil {
			klog.Warningf("websocket write: %v", err)
			return
		}
	}
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>AI Image Captioning and Hashtag Generator</title></head>
<body>
<h1>AI Image Captioning and Hashtag Generator</h1>
<form action="/api/caption" method="post" enctype="multipart/form-data">
  <p><input type="file" name="image" accept="image/*" required></p>
  <p>Caption Style:
  {{range $i, $s := .}}<label><input type="radio" name="style" value="{{$s}}"{{if eq $i 0}} checked{{end}}> {{$s}}</label>
  {{end}}</p>
  <p><button type="submit">Generate</button></p>
</form>
</body>
</html>
`))
