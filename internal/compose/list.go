package compose

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
)

// StackRecord is one entry of "compose ls --format json".
type StackRecord struct {
	Name        string `json:"Name"`
	Status      string `json:"Status"`
	ConfigFiles string `json:"ConfigFiles"`
}

// ServiceRecord is one container entry of "compose ps --format json".
type ServiceRecord struct {
	Name       string      `json:"Name"`
	Service    string      `json:"Service"`
	State      string      `json:"State"`
	Image      string      `json:"Image"`
	Publishers []Publisher `json:"Publishers"`
}

// Publisher is a port binding reported by "compose ps".
type Publisher struct {
	URL           string `json:"URL"`
	TargetPort    uint32 `json:"TargetPort"`
	PublishedPort uint32 `json:"PublishedPort"`
	Protocol      string `json:"Protocol"`
}

// Port is a service port binding. Published is empty for unpublished ports.
type Port struct {
	Published string `json:"published,omitempty"`
	Target    uint32 `json:"target"`
	Protocol  string `json:"protocol,omitempty"`
}

// ParseStackList decodes "compose ls" output. Both a JSON array and
// line-delimited JSON objects are accepted.
func ParseStackList(out []byte) ([]StackRecord, error) {
	records, err := decodeRecords[StackRecord](out)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Name == "" {
			return nil, &ParseError{Input: string(out), Reason: "stack record without name"}
		}
	}
	return records, nil
}

// ParseServiceList decodes "compose ps" output.
func ParseServiceList(out []byte) ([]ServiceRecord, error) {
	records, err := decodeRecords[ServiceRecord](out)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.Service == "" {
			return nil, &ParseError{Input: string(out), Reason: "service record without service name"}
		}
	}
	return records, nil
}

// Ports converts the publishers of a ps record, dropping duplicate
// bindings reported once per address family.
func (r ServiceRecord) Ports() []Port {
	if len(r.Publishers) == 0 {
		return nil
	}
	seen := make(map[Port]struct{}, len(r.Publishers))
	ports := make([]Port, 0, len(r.Publishers))
	for _, pub := range r.Publishers {
		port := Port{Target: pub.TargetPort, Protocol: pub.Protocol}
		if pub.PublishedPort != 0 {
			port.Published = strconv.FormatUint(uint64(pub.PublishedPort), 10)
		}
		if _, ok := seen[port]; ok {
			continue
		}
		seen[port] = struct{}{}
		ports = append(ports, port)
	}
	return ports
}

func decodeRecords[T any](out []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(out)
	if len(trimmed) == 0 {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []T
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, &ParseError{Input: string(trimmed), Reason: err.Error()}
		}
		return records, nil
	}

	var records []T
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	for {
		var record T
		err := dec.Decode(&record)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Input: string(trimmed), Reason: err.Error()}
		}
		records = append(records, record)
	}
	return records, nil
}
