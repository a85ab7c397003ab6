// Package publish distributes cycle outputs on a ZMQ PUB socket, one
// topic frame per output. Publishing is best-effort: no acknowledgment,
// no retry, no backpressure. Send failures are logged and counted but
// never fail a cycle.
package publish

import (
	"log"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"plane-detect-go/internal/types"
)

// Topics names the four output topics from the configuration document.
type Topics struct {
	ColoredMask string
	ImageViz    string
	Result      string
	Pose        string
}

type Outputs struct {
	socket     *zmq4.Socket
	topics     Topics
	sendErrors atomic.Uint64
}

// NewOutputs binds the PUB socket at endpoint.
func NewOutputs(endpoint string, topics Topics) (*Outputs, error) {
	socket, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		return nil, err
	}
	if err := socket.Bind(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	return &Outputs{socket: socket, topics: topics}, nil
}

func (o *Outputs) Close() error {
	return o.socket.Close()
}

// SendErrors reports the number of failed publish calls.
func (o *Outputs) SendErrors() uint64 {
	return o.sendErrors.Load()
}

func (o *Outputs) PublishMask(img *types.ColorImage) {
	o.send(o.topics.ColoredMask, encodeImage(img))
}

func (o *Outputs) PublishViz(img *types.ColorImage) {
	o.send(o.topics.ImageViz, encodeImage(img))
}

func (o *Outputs) PublishResult(res types.PlanesResult) {
	payload, err := cbor.Marshal(res)
	if err != nil {
		o.fail("result", err)
		return
	}
	o.send(o.topics.Result, payload)
}

func (o *Outputs) PublishPose(pose types.Pose) {
	payload, err := cbor.Marshal(pose)
	if err != nil {
		o.fail("pose", err)
		return
	}
	o.send(o.topics.Pose, payload)
}

func (o *Outputs) send(topic string, payload []byte) {
	if payload == nil {
		return
	}
	if _, err := o.socket.SendMessage(topic, payload); err != nil {
		o.fail(topic, err)
	}
}

func (o *Outputs) fail(what string, err error) {
	o.sendErrors.Add(1)
	log.Printf("publish %s failed: %v", what, err)
}

type wireImage struct {
	Type      string  `cbor:"type"`
	FrameID   int     `cbor:"frame_id"`
	Timestamp float64 `cbor:"timestamp"`
	Rows      int     `cbor:"rows"`
	Cols      int     `cbor:"cols"`
	Channels  int     `cbor:"channels"`
	Encoding  string  `cbor:"encoding"`
	Data      []byte  `cbor:"data"`
}

func encodeImage(img *types.ColorImage) []byte {
	payload, err := cbor.Marshal(wireImage{
		Type:      "image",
		FrameID:   img.FrameID,
		Timestamp: img.Timestamp,
		Rows:      img.Rows,
		Cols:      img.Cols,
		Channels:  3,
		Encoding:  "rgb8",
		Data:      img.Pixels,
	})
	if err != nil {
		log.Printf("publish image encode failed: %v", err)
		return nil
	}
	return payload
}
