//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode"

	"github.com/cloo-solutions/aqacs/internal/api/handlers"
	"github.com/cloo-solutions/aqacs/internal/capability"
	"github.com/cloo-solutions/aqacs/internal/domain"
	"github.com/cloo-solutions/aqacs/internal/qdrant"
	"github.com/cloo-solutions/aqacs/internal/server"
	"github.com/cloo-solutions/aqacs/internal/service"
	"github.com/cloo-solutions/aqacs/internal/snapshot"
	"github.com/cloo-solutions/aqacs/internal/storage"
	"github.com/cloo-solutions/aqacs/internal/tariff"
	"github.com/cloo-solutions/aqacs/internal/testutil"
)

const (
	snapshotID = domain.SnapshotID("US-HTS-2025-10-18")
	bucket     = "tariffs"
)

// snapshotFiles is a two-chapter slice of the schedule.
var snapshotFiles = map[string]string{
	"ch_01.csv": "HTS Number,Stat Suffix,Description,Unit of Quantity,General Rate of Duty,Special Rate of Duty,Column 2 Rate of Duty\n" +
		"0101.21.00,10,Purebred breeding horses,No.,Free,,Free\n" +
		"0101.29.00,10,Horses imported for immediate slaughter,No.,Free,,Free\n" +
		"0102.21.00,10,Purebred breeding cattle,No.,Free,,Free\n",
	"ch_84.csv": "HTS Number,Stat Suffix,Description,Unit of Quantity,General Rate of Duty,Special Rate of Duty,Column 2 Rate of Duty\n" +
		"8471.30.01,00,Portable automatic data processing machines weighing not more than 10 kg,No.,Free,,35%\n" +
		"8418.10.00,10,Combined refrigerator-freezers fitted with separate external doors,No.,Free,,35%\n",
}

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	RustFSC    *testutil.RustFSContainer
	QdrantC    *testutil.QdrantContainer
	Server     *httptest.Server
	Stats      *service.IndexStats
	Resolver   *snapshot.Resolver
	APIKey     string
	HTTPClient *http.Client

	extractor *service.Extractor
}

// SetupE2EEnv uploads a snapshot to RustFS, indexes it into Qdrant and serves
// the API over httptest.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	s3C := testutil.NewRustFSContainer(ctx, t)
	qC := testutil.NewQdrantContainer(ctx, t)

	client := s3C.NewBucket(ctx, t, bucket)
	for name, body := range snapshotFiles {
		testutil.PutObject(ctx, t, client, bucket, tariff.SnapshotPrefix(snapshotID)+"/"+name, body)
	}

	source, err := storage.NewS3Source(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     testutil.RustFSAccessKey,
		SecretAccessKey: testutil.RustFSSecretKey,
		Bucket:          bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 source: %v", err)
	}

	index := qdrant.NewClient(qdrant.Config{URL: qC.URL()})
	embedder := capability.NewLazy("embedder", func(ctx context.Context) (service.Embedder, error) {
		return hashEmbedder{dim: 256}, nil
	})
	qa := capability.NewLazy("qa", func(ctx context.Context) (service.QACapability, error) {
		return dutyReader{}, nil
	})

	indexer := service.NewIndexer(source, embedder, index, service.IndexerConfig{BatchSize: 2, EmbedBatchSize: 2})
	stats, err := indexer.IndexSnapshot(ctx, snapshotID)
	if err != nil {
		t.Fatalf("failed to index snapshot: %v", err)
	}

	resolver := snapshot.NewResolver(filepath.Join(t.TempDir(), "active_version.json"), "")
	if err := resolver.SetActive(snapshotID); err != nil {
		t.Fatalf("failed to set active snapshot: %v", err)
	}

	store, err := tariff.Load(ctx, source, resolver.ActiveID())
	if err != nil {
		t.Fatalf("failed to load tariff store: %v", err)
	}

	extractor, err := service.NewExtractor(qa, service.ExtractorConfig{Workers: 2})
	if err != nil {
		t.Fatalf("failed to create extractor: %v", err)
	}

	apiKey, err := service.GenerateAPIKey()
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	retriever := service.NewRetriever(resolver, embedder, index, "")
	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   service.NewAuthService([]string{apiKey}),
		Snapshots:       resolver,
		HealthHandler:   handlers.NewHealthHandler("e2e"),
		TariffHandler:   handlers.NewTariffHandler(service.NewTariffService(store, "")),
		SemanticHandler: handlers.NewSemanticHandler(retriever),
		QAHandler:       handlers.NewQAHandler(service.NewQAService(retriever, nil, extractor, 10*time.Second)),
	})

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		RustFSC:    s3C,
		QdrantC:    qC,
		Server:     httptest.NewServer(router),
		Stats:      stats,
		Resolver:   resolver,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		extractor:  extractor,
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.extractor != nil {
		e.extractor.Release()
	}
	if e.QdrantC != nil {
		e.QdrantC.Terminate(e.Ctx)
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
}

// APIResponse is the response envelope.
type APIResponse struct {
	Status int             `json:"-"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Code   string          `json:"code"`
}

// Get calls path with the env's API key.
func (e *E2ETestEnv) Get(path string, query url.Values) *APIResponse {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return e.do(http.MethodGet, path, nil, e.APIKey)
}

// Post sends body as JSON with the env's API key.
func (e *E2ETestEnv) Post(path string, body interface{}) *APIResponse {
	return e.do(http.MethodPost, path, body, e.APIKey)
}

// PostWithKey sends body as JSON with an explicit key; "" sends none.
func (e *E2ETestEnv) PostWithKey(path string, body interface{}, key string) *APIResponse {
	return e.do(http.MethodPost, path, body, key)
}

func (e *E2ETestEnv) do(method, path string, body interface{}, key string) *APIResponse {
	e.T.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.T.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.Server.URL+path, reader)
	if err != nil {
		e.T.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		e.T.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		e.T.Fatalf("failed to decode %s %s: %v", method, path, err)
	}
	out.Status = resp.StatusCode
	return &out
}

// Decode unmarshals the data envelope into v.
func (r *APIResponse) Decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(r.Data, v); err != nil {
		t.Fatalf("failed to decode data: %v (%s)", err, string(r.Data))
	}
}

// hashEmbedder is a bag-of-words embedding: every token adds one to a hashed
// dimension. Texts sharing words end up close under cosine similarity.
type hashEmbedder struct {
	dim int
}

func (h hashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		text = strings.TrimPrefix(strings.TrimPrefix(text, service.QueryPrefix), service.PassagePrefix)
		vec := make([]float32, h.dim)
		for _, tok := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			f := fnv.New32a()
			_, _ = f.Write([]byte(tok))
			vec[f.Sum32()%uint32(h.dim)]++
		}
		var norm float64
		for _, v := range vec {
			norm += float64(v * v)
		}
		if norm == 0 {
			vec[0] = 1
			norm = 1
		}
		for j := range vec {
			vec[j] /= float32(math.Sqrt(norm))
		}
		out[i] = vec
	}
	return out, nil
}

// dutyReader answers duty questions by copying the general rate out of the
// context.
type dutyReader struct{}

const generalRateLabel = "General Rate of Duty: "

func (dutyReader) Extract(ctx context.Context, question, passage string) (domain.Extraction, error) {
	if !strings.Contains(strings.ToLower(question), "duty") {
		return domain.Extraction{}, nil
	}
	start := strings.Index(passage, generalRateLabel)
	if start < 0 {
		return domain.Extraction{}, nil
	}
	rest := passage[start+len(generalRateLabel):]
	if end := strings.Index(rest, service.ContextSeparator); end >= 0 {
		rest = rest[:end]
	}
	score := 0.5
	if strings.Contains(strings.ToLower(passage), "horses") && strings.Contains(strings.ToLower(question), "horses") {
		score = 0.9
	}
	return domain.Extraction{Answer: rest, Score: score}, nil
}
