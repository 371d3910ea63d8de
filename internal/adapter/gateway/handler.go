package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"

	"sketchbook/internal/adapter/export"
	"sketchbook/internal/domain"
	"sketchbook/internal/usecase/session"
)

// HandlerDeps holds dependencies needed by RPC handlers.
type HandlerDeps struct {
	Sessions *session.Manager
	Bus      domain.EventBus
	Logger   *slog.Logger
}

// RegisterDefaultHandlers registers all built-in RPC handlers on the server.
func RegisterDefaultHandlers(s *Server, deps HandlerDeps) {
	rpc := func(method string, h RPCHandler) {
		s.RegisterHandler(method, h)
	}

	rpc("stroke.start", strokeStartHandler(deps))
	rpc("stroke.append", strokeAppendHandler(deps))
	rpc("stroke.end", strokeEndHandler(deps))
	rpc("draw.submit", drawSubmitHandler(deps))
	rpc("scene.clear", sceneClearHandler(deps))
	rpc("element.list", elementListHandler(deps))
	rpc("viewport.get", viewportGetHandler(deps))
	rpc("viewport.set", viewportSetHandler(deps))
	rpc("viewport.pan", viewportPanHandler(deps))
	rpc("viewport.zoom_at", viewportZoomAtHandler(deps))
	rpc("comment.add", commentAddHandler(deps))
	rpc("comment.save", commentSaveHandler(deps))
	rpc("comment.reply", commentReplyHandler(deps))
	rpc("comment.delete", commentDeleteHandler(deps))
	rpc("comment.move", commentMoveHandler(deps))
	rpc("comment.list", commentListHandler(deps))
	rpc("canvas.export", canvasExportHandler(deps))
	rpc("session.info", sessionInfoHandler(deps))
}

// --- stroke ---

type strokeStartRequest struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Color string  `json:"color,omitempty"`
	Width float64 `json:"width,omitempty"`
}

func strokeStartHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req strokeStartRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		client.Session.StartStroke(req.X, req.Y, req.Color, req.Width)
		return json.Marshal(map[string]bool{"started": true})
	}
}

type strokeAppendRequest struct {
	Points []domain.Point `json:"points"`
}

func strokeAppendHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req strokeAppendRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		if len(req.Points) == 0 {
			return nil, domain.ErrRPCInvalidPayload
		}
		client.Session.AppendStroke(req.Points)
		return json.Marshal(map[string]int{"appended": len(req.Points)})
	}
}

type strokeEndResponse struct {
	Committed bool         `json:"committed"`
	Element   *wireElement `json:"element,omitempty"`
}

func strokeEndHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		el, ok := client.Session.EndStroke()
		out := strokeEndResponse{Committed: ok}
		if ok {
			w, err := toWireElement(el)
			if err != nil {
				return nil, err
			}
			out.Element = &w
		}
		return json.Marshal(out)
	}
}

// --- turn ---

type drawSubmitRequest struct {
	Note string `json:"note,omitempty"`
}

func drawSubmitHandler(_ HandlerDeps) RPCHandler {
	return func(ctx context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req drawSubmitRequest
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &req); err != nil {
				return nil, domain.ErrRPCInvalidPayload
			}
		}
		if err := client.Session.Submit(ctx, req.Note); err != nil {
			return nil, err
		}
		// Return immediately; the turn plays out as events.
		return json.Marshal(map[string]bool{"accepted": true})
	}
}

func sceneClearHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		client.Session.Clear()
		return json.Marshal(map[string]bool{"cleared": true})
	}
}

// --- scene ---

// wireElement is the client-facing form of a DrawingElement: the shape
// travels in its tagged-union encoding.
type wireElement struct {
	ID     int64               `json:"id"`
	Kind   domain.ElementKind  `json:"kind"`
	Origin domain.Origin       `json:"origin"`
	Shape  json.RawMessage     `json:"shape,omitempty"`
	Stroke *domain.HumanStroke `json:"stroke,omitempty"`
	Ascii  *domain.AsciiBlock  `json:"ascii,omitempty"`
}

func toWireElement(el domain.DrawingElement) (wireElement, error) {
	w := wireElement{ID: el.ID, Kind: el.Kind, Origin: el.Origin, Stroke: el.Stroke, Ascii: el.Ascii}
	if el.Shape != nil {
		raw, err := domain.EncodeShape(el.Shape)
		if err != nil {
			return wireElement{}, err
		}
		w.Shape = raw
	}
	return w, nil
}

type elementListResponse struct {
	Elements []wireElement `json:"elements"`
}

func elementListHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		els := client.Session.Scene().Elements()
		out := elementListResponse{Elements: make([]wireElement, 0, len(els))}
		for _, el := range els {
			w, err := toWireElement(el)
			if err != nil {
				return nil, err
			}
			out.Elements = append(out.Elements, w)
		}
		return json.Marshal(out)
	}
}

// --- viewport ---

type viewportState struct {
	Zoom float64      `json:"zoom"`
	Pan  domain.Point `json:"pan"`
}

func viewportGetHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		v := client.Session.Viewport()
		return json.Marshal(viewportState{Zoom: v.Zoom(), Pan: v.Pan()})
	}
}

func viewportSetHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req viewportState
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		if req.Zoom <= 0 {
			return nil, domain.ErrRPCInvalidPayload
		}
		v := client.Session.Viewport()
		v.Set(req.Zoom, req.Pan)
		return json.Marshal(viewportState{Zoom: v.Zoom(), Pan: v.Pan()})
	}
}

type viewportPanRequest struct {
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
}

func viewportPanHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req viewportPanRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		v := client.Session.Viewport()
		v.PanBy(req.DX, req.DY)
		return json.Marshal(viewportState{Zoom: v.Zoom(), Pan: v.Pan()})
	}
}

type viewportZoomAtRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Factor float64 `json:"factor"`
}

func viewportZoomAtHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req viewportZoomAtRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		if req.Factor <= 0 {
			return nil, domain.ErrRPCInvalidPayload
		}
		v := client.Session.Viewport()
		v.ZoomAt(domain.Point{X: req.X, Y: req.Y}, req.Factor)
		return json.Marshal(viewportState{Zoom: v.Zoom(), Pan: v.Pan()})
	}
}

// --- comments ---

type commentAddRequest struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func commentAddHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req commentAddRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		if req.Text == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		c := client.Session.Comments().Add(req.Text, req.X, req.Y, domain.OriginHuman)
		return json.Marshal(c)
	}
}

type commentIDRequest struct {
	ID string `json:"id"`
}

func commentSaveHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req commentIDRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.ID == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		c, err := client.Session.Comments().Save(req.ID)
		if err != nil {
			return nil, err
		}
		return json.Marshal(c)
	}
}

type commentReplyRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func commentReplyHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req commentReplyRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.ID == "" || req.Text == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		c, err := client.Session.Comments().Reply(req.ID, domain.OriginHuman, req.Text)
		if err != nil {
			return nil, err
		}
		return json.Marshal(c)
	}
}

func commentDeleteHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req commentIDRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.ID == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		if err := client.Session.Comments().Delete(req.ID); err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"deleted": true})
	}
}

type commentMoveRequest struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

func commentMoveHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req commentMoveRequest
		if err := json.Unmarshal(payload, &req); err != nil || req.ID == "" {
			return nil, domain.ErrRPCInvalidPayload
		}
		c, err := client.Session.Comments().Move(req.ID, req.X, req.Y)
		if err != nil {
			return nil, err
		}
		return json.Marshal(c)
	}
}

type commentListResponse struct {
	Comments []domain.Comment `json:"comments"`
}

func commentListHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		return json.Marshal(commentListResponse{Comments: client.Session.Comments().List()})
	}
}

// --- export ---

type canvasExportRequest struct {
	Format string `json:"format"`
}

type canvasExportResponse struct {
	Format string `json:"format"`
	// SVG documents travel as text; PDF bytes are base64 encoded.
	Data string `json:"data"`
}

func canvasExportHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, payload json.RawMessage) (json.RawMessage, error) {
		var req canvasExportRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.ErrRPCInvalidPayload
		}
		cfg := client.Session.Config()
		els := client.Session.Scene().Elements()
		switch req.Format {
		case "svg":
			doc := export.SceneSVG(els, cfg.Width, cfg.Height)
			return json.Marshal(canvasExportResponse{Format: "svg", Data: doc})
		case "pdf":
			doc, err := export.ScenePDF(els, cfg.Width, cfg.Height)
			if err != nil {
				return nil, err
			}
			return json.Marshal(canvasExportResponse{
				Format: "pdf",
				Data:   base64.StdEncoding.EncodeToString(doc),
			})
		default:
			return nil, domain.ErrRPCInvalidPayload
		}
	}
}

// --- session ---

type sessionInfoResponse struct {
	SessionID string        `json:"session_id"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Elements  int           `json:"elements"`
	Comments  int           `json:"comments"`
	Turns     []domain.Turn `json:"turns"`
	InFlight  bool          `json:"in_flight"`
	Viewport  viewportState `json:"viewport"`
}

func sessionInfoHandler(_ HandlerDeps) RPCHandler {
	return func(_ context.Context, client *ClientInfo, _ json.RawMessage) (json.RawMessage, error) {
		sess := client.Session
		v := sess.Viewport()
		return json.Marshal(sessionInfoResponse{
			SessionID: sess.ID,
			Width:     sess.Config().Width,
			Height:    sess.Config().Height,
			Elements:  sess.Scene().Len(),
			Comments:  len(sess.Comments().List()),
			Turns:     sess.Turns(),
			InFlight:  sess.InFlight(),
			Viewport:  viewportState{Zoom: v.Zoom(), Pan: v.Pan()},
		})
	}
}
