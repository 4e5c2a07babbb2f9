// Package pica calls the Pica deepfake and manipulation detector.
package pica

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/bryanwahyu/osint-cafe/internal/infra/provider/httpjson"
)

const name = "pica"

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

type Client struct {
	cfg  Config
	http *httpjson.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.picaos.com"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: httpjson.New(cfg.Timeout)}
}

func (c *Client) Name() string { return name }

type analyzeRequest struct {
	Image           string   `json:"image"`
	DetectionTypes  []string `json:"detection_types"`
	IncludeMetadata bool     `json:"include_metadata"`
}

type detection struct {
	Confidence float64 `json:"confidence"`
}

type analyzeResponse struct {
	Detections *struct {
		Deepfake     detection `json:"deepfake"`
		Manipulation detection `json:"manipulation"`
		FaceSwap     detection `json:"face_swap"`
	} `json:"detections"`
	Metadata struct {
		FacesDetected int     `json:"faces_detected"`
		QualityScore  float64 `json:"quality_score"`
	} `json:"metadata"`
}

// assessment is the image report shape the normalizer understands.
type assessment struct {
	RiskLevel            string   `json:"riskLevel"`
	IsAuthentic          bool     `json:"isAuthentic"`
	FaceDetected         bool     `json:"faceDetected"`
	ManipulationDetected bool     `json:"manipulationDetected"`
	Details              []string `json:"details"`
}

func (c *Client) Call(ctx context.Context, req analysis.Request) analysis.Result {
	if c.cfg.APIKey == "" {
		return analysis.Failure(name, analysis.Unconfigured, analysis.ErrNotConfigured.Error())
	}
	if len(req.Image) == 0 {
		return analysis.Failure(name, analysis.Rejected, "no image supplied")
	}

	var out analyzeResponse
	err := c.http.PostJSON(ctx, c.cfg.BaseURL+"/v1/analyze", c.headers(), analyzeRequest{
		Image:           base64.StdEncoding.EncodeToString(req.Image),
		DetectionTypes:  []string{"deepfake", "face_swap", "manipulation"},
		IncludeMetadata: true,
	}, &out)
	if err != nil {
		return httpjson.Failure(name, err)
	}
	if out.Detections == nil {
		return analysis.Failure(name, analysis.Unparseable, "response has no detections")
	}

	raw, err := json.Marshal(assess(out))
	if err != nil {
		return analysis.Failure(name, analysis.Unparseable, err.Error())
	}
	return analysis.Success(name, string(raw))
}

// Check reads the account endpoint.
func (c *Client) Check(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return analysis.ErrNotConfigured
	}
	return c.http.GetJSON(ctx, c.cfg.BaseURL+"/v1/account", c.headers(), nil)
}

func (c *Client) headers() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}

// assess turns detector confidences into a categorical risk. Any detector above
// 0.6 makes the image high risk, above 0.3 medium.
func assess(r analyzeResponse) assessment {
	d := r.Detections
	scores := []struct {
		label string
		conf  float64
	}{
		{"Deepfake detection", d.Deepfake.Confidence},
		{"Image manipulation", d.Manipulation.Confidence},
		{"Face swap detected", d.FaceSwap.Confidence},
	}

	var top float64
	details := make([]string, 0, len(scores)+1)
	for _, s := range scores {
		if s.conf > top {
			top = s.conf
		}
		if s.conf > 0.5 {
			details = append(details, fmt.Sprintf("%s: %.1f%%", s.label, s.conf*100))
		}
	}

	a := assessment{
		RiskLevel:            "low",
		IsAuthentic:          top <= 0.6,
		FaceDetected:         r.Metadata.FacesDetected > 0,
		ManipulationDetected: d.Manipulation.Confidence > 0.5 || d.FaceSwap.Confidence > 0.5,
	}
	switch {
	case top > 0.6:
		a.RiskLevel = "high"
	case top > 0.3:
		a.RiskLevel = "medium"
	}
	if !a.FaceDetected {
		details = append(details, "No face detected")
	}
	if len(details) == 0 {
		details = append(details, "No manipulation signals above threshold")
	}
	a.Details = details
	return a
}
