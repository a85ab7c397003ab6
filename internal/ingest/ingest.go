package ingest

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"plane-detect-go/internal/types"
)

// RawRecorder taps raw payload bytes before decoding, for replay logs.
type RawRecorder interface {
	Record(payload []byte) error
}

// StreamDepth returns a channel of depth frames pulled from a sensor
// driver endpoint. Expects CBOR messages shaped like:
//
//	{ "type": "depth", "frame_id": <int>, "timestamp": <float>,
//	  "data": <tag 40 multidim array, float32 meters or uint16 millimeters> }
//
// Decode failures are logged every Nth and counted; they never stop the
// stream.
func StreamDepth(ctx context.Context, endpoint string, logEvery int, rec RawRecorder) (<-chan *types.DepthImage, error) {
	out := make(chan *types.DepthImage, 8)
	err := stream(ctx, endpoint, logEvery, rec, func(payload []byte, every int) bool {
		img, ok := decodeDepthMessage(payload, every)
		if !ok {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case out <- img:
			return true
		}
	}, func() { close(out) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StreamColor is the color-stream counterpart of StreamDepth. Expects
// uint8 RGB data with dims [rows, cols, 3].
func StreamColor(ctx context.Context, endpoint string, logEvery int, rec RawRecorder) (<-chan *types.ColorImage, error) {
	out := make(chan *types.ColorImage, 8)
	err := stream(ctx, endpoint, logEvery, rec, func(payload []byte, every int) bool {
		img, ok := decodeColorMessage(payload, every)
		if !ok {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case out <- img:
			return true
		}
	}, func() { close(out) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

func stream(ctx context.Context, endpoint string, logEvery int, rec RawRecorder, handle func([]byte, int) bool, done func()) error {
	if logEvery < 1 {
		logEvery = 1
	}

	socket, err := zmq4.NewSocket(zmq4.PULL)
	if err != nil {
		return err
	}
	if err := socket.SetRcvtimeo(250 * time.Millisecond); err != nil {
		_ = socket.Close()
		return err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return err
	}

	go func() {
		defer done()
		defer socket.Close()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msg, err := socket.RecvBytes(0)
			if err != nil {
				// Receive timeout; loop back to the shutdown check.
				continue
			}

			if rec != nil {
				if err := rec.Record(msg); err != nil {
					logEveryN(logEvery, "ingest raw record failed: %v", err)
				}
			}

			if !handle(msg, logEvery) {
				return
			}
		}
	}()

	return nil
}

type frameHeader struct {
	Type      string  `cbor:"type"`
	FrameID   int     `cbor:"frame_id"`
	Timestamp float64 `cbor:"timestamp"`
}

func decodeDepthMessage(msg []byte, logEvery int) (*types.DepthImage, bool) {
	header, data, ok := decodeEnvelope(msg, "depth", logEvery)
	if !ok {
		return nil, false
	}

	rows, cols, meters, err := decodeDepthArray(data)
	if err != nil {
		countDecodeFailure()
		logEveryN(logEvery, "ingest depth decode error: %v", err)
		return nil, false
	}

	return &types.DepthImage{
		Rows:      rows,
		Cols:      cols,
		FrameID:   header.FrameID,
		Timestamp: header.Timestamp,
		Meters:    meters,
	}, true
}

func decodeColorMessage(msg []byte, logEvery int) (*types.ColorImage, bool) {
	header, data, ok := decodeEnvelope(msg, "color", logEvery)
	if !ok {
		return nil, false
	}

	rows, cols, pixels, err := decodeColorArray(data)
	if err != nil {
		countDecodeFailure()
		logEveryN(logEvery, "ingest color decode error: %v", err)
		return nil, false
	}

	return &types.ColorImage{
		Rows:      rows,
		Cols:      cols,
		FrameID:   header.FrameID,
		Timestamp: header.Timestamp,
		Pixels:    pixels,
	}, true
}

func decodeEnvelope(msg []byte, wantType string, logEvery int) (frameHeader, any, bool) {
	var payload map[string]any
	if err := cbor.Unmarshal(msg, &payload); err != nil {
		countDecodeFailure()
		logEveryN(logEvery, "ingest CBOR decode error: %v", err)
		return frameHeader{}, nil, false
	}

	msgType, _ := payload["type"].(string)
	if msgType != wantType {
		logEveryN(logEvery, "ingest ignoring message type %q (want %q)", msgType, wantType)
		return frameHeader{}, nil, false
	}

	header := frameHeader{Type: msgType}
	if id, err := toInt(payload["frame_id"]); err == nil {
		header.FrameID = id
	}
	if ts, err := toFloat(payload["timestamp"]); err == nil {
		header.Timestamp = ts
	}

	data, ok := payload["data"]
	if !ok {
		countDecodeFailure()
		logEveryN(logEvery, "ingest %s message missing data field", wantType)
		return frameHeader{}, nil, false
	}
	return header, data, true
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, fmt.Errorf("unsupported int type %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("unsupported float type %T", v)
	}
}

var decodeFailures atomic.Uint64

func countDecodeFailure() {
	decodeFailures.Add(1)
}

// DecodeFailures reports the total number of undecodable ingest messages.
func DecodeFailures() uint64 {
	return decodeFailures.Load()
}

var logCounter atomic.Uint64

func logEveryN(n int, format string, args ...any) {
	if logCounter.Add(1)%uint64(n) == 0 {
		log.Printf(format, args...)
	}
}
