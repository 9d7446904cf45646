package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	chunkSize    = 1000
	chunkOverlap = 100
)

// FileIndexingService materializes per-agent retrieval indexes: it syncs an
// agent's vector-store collection to the files in its document directory,
// chunking and embedding anything new or changed and deleting anything gone.
type FileIndexingService struct {
	client           chromago.Client
	embedder         Embedder
	fileStore        *FileStore
	collectionPrefix string
	logger           *slog.Logger
}

// NewFileIndexingService creates an indexing service over the given vector
// store client and embedder.
func NewFileIndexingService(client chromago.Client, embedder Embedder, fileStore *FileStore, collectionPrefix string, logger *slog.Logger) *FileIndexingService {
	return &FileIndexingService{
		client:           client,
		embedder:         embedder,
		fileStore:        fileStore,
		collectionPrefix: collectionPrefix,
		logger:           logger,
	}
}

// CollectionName returns the vector-store collection for one agent. The
// per-agent collection is what keeps retrieval namespaced: one agent's
// chunks can never surface in another agent's results.
func (s *FileIndexingService) CollectionName(agentID string) string {
	return fmt.Sprintf("%s-%s", s.collectionPrefix, agentID)
}

// Build implements IndexBuilder. It returns ErrNoCorpus when the agent has
// no documents, so callers can treat the empty corpus as a first-class
// outcome rather than an error path.
func (s *FileIndexingService) Build(ctx context.Context, agentID string) (*AgentIndex, error) {
	files, err := s.fileStore.List(agentID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: agent %s", ErrNoCorpus, agentID)
	}

	collection, err := s.client.GetOrCreateCollection(
		ctx,
		s.CollectionName(agentID),
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("agent_id", agentID),
				chromago.NewStringAttribute("created_by", "indexing_service"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: get or create collection: %v", ErrRetrievalUnavailable, err)
	}

	if err := s.syncCollection(ctx, collection, agentID, files); err != nil {
		return nil, err
	}

	s.logger.Info("index built", "component", "indexer", "agent", agentID, "files", len(files))
	return &AgentIndex{
		AgentID:    agentID,
		Collection: collection,
		Files:      files,
		BuiltAt:    time.Now(),
	}, nil
}

// syncCollection reconciles the collection contents with the files on disk,
// keyed by file hash so unchanged files are skipped.
func (s *FileIndexingService) syncCollection(ctx context.Context, collection chromago.Collection, agentID string, files []string) error {
	indexed, err := s.currentIndexState(ctx, collection)
	if err != nil {
		return fmt.Errorf("%w: reading index state: %v", ErrRetrievalUnavailable, err)
	}

	agentDir, err := s.fileStore.AgentDir(agentID)
	if err != nil {
		return err
	}

	onDisk := make(map[string]bool, len(files))
	for _, name := range files {
		path := filepath.Join(agentDir, name)
		if !SupportedDocument(path) {
			continue
		}
		onDisk[name] = true

		hash, err := fileHash(path)
		if err != nil {
			s.logger.Warn("could not hash file", "component", "indexer", "file", name, "error", err)
			continue
		}

		if state, ok := indexed[name]; ok {
			if state == hash {
				continue
			}
			if err := s.deleteDocumentsByFile(ctx, collection, name); err != nil {
				return fmt.Errorf("%w: deleting stale chunks for %s: %v", ErrRetrievalUnavailable, name, err)
			}
		}

		if err := s.embedFile(ctx, collection, path, name, hash); err != nil {
			return err
		}
	}

	for name := range indexed {
		if !onDisk[name] {
			if err := s.deleteDocumentsByFile(ctx, collection, name); err != nil {
				return fmt.Errorf("%w: deleting removed file %s: %v", ErrRetrievalUnavailable, name, err)
			}
		}
	}
	return nil
}

// embedFile splits one document and adds its embedded chunks to the collection.
func (s *FileIndexingService) embedFile(ctx context.Context, collection chromago.Collection, path, name, hash string) error {
	content, err := ExtractTextFromFile(path)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", name, err)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(chunkOverlap),
	)
	chunks, err := splitter.SplitText(content)
	if err != nil {
		return fmt.Errorf("splitting %s: %w", name, err)
	}
	s.logger.Debug("split document", "component", "indexer", "file", name, "chunks", len(chunks))

	for i, chunk := range chunks {
		vector, err := s.embedder.Embed(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embedding chunk %d of %s: %w", i, name, err)
		}
		embedding := embeddings.NewEmbeddingFromFloat32(vector)
		metadata := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("source_file", name),
			chromago.NewStringAttribute("file_hash", hash),
			chromago.NewIntAttribute("chunk_num", int64(i)),
		)
		docID := chromago.DocumentID(fmt.Sprintf("%s-chunk%d", uuid.New().String(), i))
		err = collection.Add(ctx,
			chromago.WithIDs(docID),
			chromago.WithTexts(chunk),
			chromago.WithEmbeddings(embedding),
			chromago.WithMetadatas(metadata),
		)
		if err != nil {
			return fmt.Errorf("%w: adding chunk %d of %s: %v", ErrRetrievalUnavailable, i, name, err)
		}
	}
	return nil
}

// currentIndexState maps indexed filenames to the file hash they were built
// from. Metadata conversion goes through JSON because DocumentMetadata has no
// public map accessor.
func (s *FileIndexingService) currentIndexState(ctx context.Context, collection chromago.Collection) (map[string]string, error) {
	state := make(map[string]string)
	results, err := collection.Get(ctx)
	if err != nil {
		return nil, err
	}
	for _, meta := range results.GetMetadatas() {
		if meta == nil {
			continue
		}
		jsonBytes, err := json.Marshal(meta)
		if err != nil {
			continue
		}
		var metaMap map[string]interface{}
		if err := json.Unmarshal(jsonBytes, &metaMap); err != nil {
			continue
		}
		name, ok := metaMap["source_file"].(string)
		if !ok {
			continue
		}
		if hash, ok := metaMap["file_hash"].(string); ok {
			if _, exists := state[name]; !exists {
				state[name] = hash
			}
		}
	}
	return state, nil
}

func (s *FileIndexingService) deleteDocumentsByFile(ctx context.Context, collection chromago.Collection, name string) error {
	where := chromago.EqString("source_file", name)
	return collection.Delete(ctx, chromago.WithWhereDelete(where))
}

func fileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
