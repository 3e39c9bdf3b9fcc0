package plant

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"farmhand/internal/config"
	"farmhand/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.NewLogger("plant-test", logging.ERROR, io.Discard)
}

func TestNormalizeConfidence(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0.83, 0.83},
		{1.0, 1.0},
		{0, 0},
		{83, 0.83},   // percentage scale
		{100, 1.0},
		{150, 1.0},   // clamped after scaling
		{-0.2, 0},    // clamped
	}
	for _, tc := range cases {
		if got := normalizeConfidence(tc.in); got != tc.want {
			t.Errorf("normalizeConfidence(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCareRecommendations(t *testing.T) {
	t.Run("tomato names get the fixed tomato list in order", func(t *testing.T) {
		for _, name := range []string{"Tomato Plant", "cherry TOMATO", "Solanum tomato hybrid"} {
			recs := careRecommendations(name)
			if len(recs) != 5 {
				t.Fatalf("expected 5 tomato recommendations for %q, got %d", name, len(recs))
			}
			if !strings.Contains(recs[0], "full sun") || !strings.Contains(recs[2], "stakes or cages") {
				t.Errorf("unexpected tomato list order for %q: %v", name, recs)
			}
		}
	})

	t.Run("herb keyword shares the basil list", func(t *testing.T) {
		if got, want := careRecommendations("Mystery Herb"), careRecommendations("Basil"); got[0] != want[0] {
			t.Errorf("expected herb to match basil list, got %q vs %q", got[0], want[0])
		}
	})

	t.Run("unknown names get the generic six-entry list", func(t *testing.T) {
		recs := careRecommendations("Quercus robur")
		if len(recs) != 6 {
			t.Errorf("expected generic 6-entry list, got %d: %v", len(recs), recs)
		}
	})
}

func TestGuessFromImage(t *testing.T) {
	t.Run("is deterministic for the same bytes", func(t *testing.T) {
		img := []byte("same image bytes")
		a := guessFromImage(img)
		b := guessFromImage(img)
		if a.Name != b.Name {
			t.Errorf("expected stable guess, got %q and %q", a.Name, b.Name)
		}
	})

	t.Run("carries the fixed local-guess shape", func(t *testing.T) {
		got := guessFromImage([]byte{1, 2, 3})
		if !strings.HasPrefix(got.Name, "Possible ") {
			t.Errorf("expected Possible prefix, got %q", got.Name)
		}
		if got.Confidence != 0.6 {
			t.Errorf("expected confidence 0.6, got %v", got.Confidence)
		}
		if len(got.Recommendations) == 0 {
			t.Error("expected care recommendations")
		}
	})
}

func TestClientIdentify(t *testing.T) {
	t.Run("keyed provider reports disease warnings", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Api-Key") == "" {
				http.Error(w, "missing key", http.StatusUnauthorized)
				return
			}
			fmt.Fprint(w, `{
				"suggestions": [{"plant_name": "Tomato Plant", "probability": 0.91}],
				"health_assessment": {"diseases": [{"name": "Early Blight", "description": "fungal leaf spots", "probability": 0.7}]}
			}`)
		}))
		defer srv.Close()

		client := NewClient(config.PlantConfig{
			APIKey:      "key",
			APIEndpoint: srv.URL,
			FreeURL:     srv.URL,
			TimeoutSecs: 5,
		}, testLogger())

		got := client.Identify(context.Background(), []byte("img"))

		if got.Health != DiseaseWarningStatus {
			t.Errorf("expected disease warning, got %q", got.Health)
		}
		last := got.Recommendations[len(got.Recommendations)-1]
		if !strings.Contains(last, "Early Blight") {
			t.Errorf("expected disease recommendation appended, got %q", last)
		}
		if got.Confidence != 0.91 {
			t.Errorf("expected confidence 0.91, got %v", got.Confidence)
		}
	})

	t.Run("low disease probability stays healthy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{
				"suggestions": [{"plant_name": "Rose Bush", "probability": 0.8}],
				"health_assessment": {"diseases": [{"name": "Black Spot", "description": "spots", "probability": 0.3}]}
			}`)
		}))
		defer srv.Close()

		client := NewClient(config.PlantConfig{
			APIKey:      "key",
			APIEndpoint: srv.URL,
			FreeURL:     srv.URL,
			TimeoutSecs: 5,
		}, testLogger())

		if got := client.Identify(context.Background(), []byte("img")); got.Health != HealthyStatus {
			t.Errorf("expected healthy status, got %q", got.Health)
		}
	})

	t.Run("percentage-scale confidence is normalized into [0,1]", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"results": [{"score": 87, "species": {"scientificNameWithoutAuthor": "Ocimum basilicum"}}]}`)
		}))
		defer srv.Close()

		client := NewClient(config.PlantConfig{FreeURL: srv.URL, TimeoutSecs: 5}, testLogger())
		got := client.Identify(context.Background(), []byte("img"))

		if got.Confidence < 0 || got.Confidence > 1 {
			t.Errorf("confidence out of range: %v", got.Confidence)
		}
		if got.Confidence != 0.87 {
			t.Errorf("expected normalized 0.87, got %v", got.Confidence)
		}
	})

	t.Run("network failure falls back to the deterministic local guess", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer down.Close()

		client := NewClient(config.PlantConfig{FreeURL: down.URL, TimeoutSecs: 5}, testLogger())
		got := client.Identify(context.Background(), []byte("some leaf photo"))

		if !strings.HasPrefix(got.Name, "Possible ") {
			t.Errorf("expected local guess, got %q", got.Name)
		}
		if got.Confidence != 0.6 {
			t.Errorf("expected local-guess confidence 0.6, got %v", got.Confidence)
		}
	})

	t.Run("empty image exhausts the chain to the unavailable payload", func(t *testing.T) {
		down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusServiceUnavailable)
		}))
		defer down.Close()

		client := NewClient(config.PlantConfig{FreeURL: down.URL, TimeoutSecs: 5}, testLogger())
		got := client.Identify(context.Background(), nil)

		if got.Name != "Plant identification unavailable" {
			t.Errorf("expected unavailable payload, got %q", got.Name)
		}
		if got.Confidence != 0 {
			t.Errorf("expected zero confidence, got %v", got.Confidence)
		}
	})
}
