package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nholik/stackyard/internal/deploy"
	"gopkg.in/yaml.v3"
)

// LoadDeploymentFile parses a YAML deployment request:
//
//	name: shop
//	services:
//	  - name: web
//	    image: nginx:1.25
//	    ports: [{published: 8080, target: 80}]
//
// Unknown keys are rejected. The request is validated before it is returned.
func LoadDeploymentFile(path string) (deploy.Request, error) {
	if path == "" {
		return deploy.Request{}, errors.New("deployment file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return deploy.Request{}, fmt.Errorf("read deployment file: %w", err)
	}

	return ParseDeployment(data)
}

// ParseDeployment decodes and validates a YAML deployment request.
func ParseDeployment(data []byte) (deploy.Request, error) {
	var req deploy.Request
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return deploy.Request{}, errors.New("deployment file is empty")
		}
		return deploy.Request{}, fmt.Errorf("parse deployment file: %w", err)
	}

	if err := req.Validate(); err != nil {
		return deploy.Request{}, err
	}

	return req, nil
}
