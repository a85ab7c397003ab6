package detect

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"plane-detect-go/internal/calib"
	"plane-detect-go/internal/types"
)

const remoteTimeout = 10 * time.Second

// Remote invokes the external plane detector over a ZMQ REQ/REP
// endpoint with CBOR payloads. One request per cycle, strictly
// synchronous; the server loop never overlaps cycles.
type Remote struct {
	socket *zmq4.Socket
	info   calib.CameraInfo
}

type wireIntrinsics struct {
	Width  int     `cbor:"width"`
	Height int     `cbor:"height"`
	Fx     float64 `cbor:"fx"`
	Fy     float64 `cbor:"fy"`
	Cx     float64 `cbor:"cx"`
	Cy     float64 `cbor:"cy"`
}

type wireDepth struct {
	Rows   int       `cbor:"rows"`
	Cols   int       `cbor:"cols"`
	Meters []float32 `cbor:"meters"`
}

type wireColor struct {
	Rows   int    `cbor:"rows"`
	Cols   int    `cbor:"cols"`
	Pixels []byte `cbor:"pixels"`
}

type detectRequest struct {
	Intrinsics wireIntrinsics `cbor:"intrinsics"`
	Depth      wireDepth      `cbor:"depth"`
	Color      wireColor      `cbor:"color"`
}

type detectResponse struct {
	Error  string             `cbor:"error"`
	Planes []types.PlaneParam `cbor:"planes"`
	Mask   wireColor          `cbor:"mask"`
	Viz    wireColor          `cbor:"viz"`
}

// NewRemote connects to the detector endpoint. The calibration
// descriptor travels with every request so the detector owns all
// projection math.
func NewRemote(endpoint string, info calib.CameraInfo) (*Remote, error) {
	socket, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return nil, err
	}
	if err := socket.SetRcvtimeo(remoteTimeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetSndtimeo(remoteTimeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	return &Remote{socket: socket, info: info}, nil
}

func (r *Remote) Close() error {
	return r.socket.Close()
}

func (r *Remote) DetectPlanes(depth *types.DepthImage, color *types.ColorImage) ([]types.PlaneParam, *types.ColorImage, *types.ColorImage, error) {
	req := detectRequest{
		Intrinsics: wireIntrinsics{
			Width:  r.info.Width,
			Height: r.info.Height,
			Fx:     r.info.Fx,
			Fy:     r.info.Fy,
			Cx:     r.info.Cx,
			Cy:     r.info.Cy,
		},
		Depth: wireDepth{Rows: depth.Rows, Cols: depth.Cols, Meters: depth.Meters},
		Color: wireColor{Rows: color.Rows, Cols: color.Cols, Pixels: color.Pixels},
	}

	payload, err := cbor.Marshal(req)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("encode detect request: %w", err)
	}
	if _, err := r.socket.SendBytes(payload, 0); err != nil {
		return nil, nil, nil, fmt.Errorf("send detect request: %w", err)
	}

	reply, err := r.socket.RecvBytes(0)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("receive detect response: %w", err)
	}

	var resp detectResponse
	if err := cbor.Unmarshal(reply, &resp); err != nil {
		return nil, nil, nil, fmt.Errorf("decode detect response: %w", err)
	}
	if resp.Error != "" {
		return nil, nil, nil, fmt.Errorf("detector: %s", resp.Error)
	}

	mask := &types.ColorImage{
		Rows:      resp.Mask.Rows,
		Cols:      resp.Mask.Cols,
		FrameID:   depth.FrameID,
		Timestamp: depth.Timestamp,
		Pixels:    resp.Mask.Pixels,
	}
	viz := &types.ColorImage{
		Rows:      resp.Viz.Rows,
		Cols:      resp.Viz.Cols,
		FrameID:   depth.FrameID,
		Timestamp: depth.Timestamp,
		Pixels:    resp.Viz.Pixels,
	}
	return resp.Planes, mask, viz, nil
}
