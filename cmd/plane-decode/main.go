package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/fxamacker/cbor/v2"
)

const (
	tagMultiDimArray = 40
	tagUint8Array    = 64
	tagUint16LE      = 69
	tagFloat32LE     = 85
)

func main() {
	path := flag.String("path", "", "Path to CBOR frame file or directory")
	limit := flag.Int("limit", 5, "Max number of frames to summarize per stream")
	flag.Parse()

	if *path == "" {
		log.Fatal("missing -path")
	}

	files, err := listFiles(*path)
	if err != nil {
		log.Fatalf("list files: %v", err)
	}

	var depthCount int
	var colorCount int
	var otherCount int

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			log.Printf("read %s: %v", file, err)
			continue
		}

		msg, err := decodeMessage(data)
		if err != nil {
			log.Printf("decode %s: %v", file, err)
			continue
		}

		switch msg.Type {
		case "depth":
			depthCount++
			if depthCount <= *limit {
				printFrame(file, msg)
			}
		case "color":
			colorCount++
			if colorCount <= *limit {
				printFrame(file, msg)
			}
		default:
			otherCount++
		}
	}

	fmt.Printf("summary: depth=%d color=%d other=%d\n", depthCount, colorCount, otherCount)
}

func printFrame(file string, msg messageSummary) {
	fmt.Printf("%s: %s\n", msg.Type, file)
	fmt.Printf("  frame_id: %v\n", msg.FrameID)
	fmt.Printf("  timestamp: %v\n", msg.Timestamp)
	fmt.Printf("  data: %s\n", msg.DataInfo)
}

type messageSummary struct {
	Type      string
	FrameID   any
	Timestamp any
	DataInfo  string
}

func decodeMessage(data []byte) (messageSummary, error) {
	var payload map[string]any
	if err := cbor.Unmarshal(data, &payload); err != nil {
		return messageSummary{}, err
	}
	msgType, _ := payload["type"].(string)
	summary := messageSummary{
		Type:      msgType,
		FrameID:   payload["frame_id"],
		Timestamp: payload["timestamp"],
	}
	if value, ok := payload["data"]; ok {
		summary.DataInfo = describeData(value)
	} else {
		summary.DataInfo = "missing"
	}
	return summary, nil
}

func describeData(value any) string {
	tag, ok := value.(cbor.Tag)
	if !ok {
		return fmt.Sprintf("type %T", value)
	}
	if tag.Number != tagMultiDimArray {
		return fmt.Sprintf("tag %d", tag.Number)
	}
	items, ok := tag.Content.([]any)
	if !ok || len(items) != 2 {
		return "invalid multidim"
	}
	dims, ok := items[0].([]any)
	if !ok {
		return "invalid dims"
	}
	dataTag, _ := items[1].(cbor.Tag)
	switch dataTag.Number {
	case tagFloat32LE:
		return fmt.Sprintf("dims %v float32", dims)
	case tagUint16LE:
		return fmt.Sprintf("dims %v uint16", dims)
	case tagUint8Array:
		return fmt.Sprintf("dims %v uint8", dims)
	default:
		return fmt.Sprintf("dims %v tag %d", dims, dataTag.Number)
	}
}

func listFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if filepath.Ext(entry.Name()) == ".cbor" {
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
