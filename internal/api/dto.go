package api

import (
	"time"

	"github.com/kalambet/odin/internal/graph"
	"github.com/kalambet/odin/internal/retrieval"
	"github.com/kalambet/odin/internal/storage"
)

// TranslateRequest is the body of /translate/create and /translate/update.
// Data is the existing graph for update mode; when empty the server exports
// it for RootPath.
type TranslateRequest struct {
	Text     string `json:"text"`
	RootPath string `json:"root_path"`
	FilePath string `json:"file_path"`
	Data     string `json:"data,omitempty"`
}

type TranslateResponse struct {
	Cypher string `json:"cypher"`
}

// AuxRequest is the body of the auxiliary model calls. /questions reads
// Text; the code endpoints read Code.
type AuxRequest struct {
	Text string `json:"text,omitempty"`
	Code string `json:"code,omitempty"`
}

type AuxResponse struct {
	Result string `json:"result"`
}

type CountDTO struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

type StatsResponse struct {
	Nodes         int64      `json:"nodes"`
	Labels        []CountDTO `json:"labels"`
	Relationships []CountDTO `json:"relationships"`
	Files         int64      `json:"files"`
}

type RunErrorDTO struct {
	Document string `json:"document"`
	Phase    string `json:"phase"`
	Message  string `json:"message"`
}

type RunDTO struct {
	ID                 string        `json:"id"`
	RootPath           string        `json:"root_path"`
	StartedAt          time.Time     `json:"started_at"`
	FinishedAt         time.Time     `json:"finished_at"`
	Total              int           `json:"total"`
	Processed          int           `json:"processed"`
	Failed             int           `json:"failed"`
	Embedded           int           `json:"embedded"`
	EmbedFailed        int           `json:"embed_failed"`
	TranslationSeconds float64       `json:"translation_seconds"`
	GraphWriteSeconds  float64       `json:"graph_write_seconds"`
	EmbeddingSeconds   float64       `json:"embedding_seconds"`
	ElapsedSeconds     float64       `json:"elapsed_seconds"`
	Reset              bool          `json:"reset"`
	Cancelled          bool          `json:"cancelled"`
	Errors             []RunErrorDTO `json:"errors,omitempty"`
}

type MatchDTO struct {
	SourceID   string    `json:"source_id"`
	ChunkIndex int       `json:"chunk_index"`
	Text       string    `json:"text"`
	Score      float32   `json:"score"`
	Tags       []string  `json:"tags,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func toStatsResponse(st graph.Stats) StatsResponse {
	return StatsResponse{
		Nodes:         st.Nodes,
		Labels:        toCounts(st.Labels),
		Relationships: toCounts(st.Relationships),
		Files:         st.Files,
	}
}

func toCounts(in []graph.Count) []CountDTO {
	out := make([]CountDTO, len(in))
	for i, c := range in {
		out[i] = CountDTO{Name: c.Name, Count: c.Count}
	}
	return out
}

func toRunDTO(run storage.ImportRun) RunDTO {
	dto := RunDTO{
		ID:                 run.ID,
		RootPath:           run.RootPath,
		StartedAt:          run.StartedAt,
		FinishedAt:         run.FinishedAt,
		Total:              run.Total,
		Processed:          run.Processed,
		Failed:             run.Failed,
		Embedded:           run.Embedded,
		EmbedFailed:        run.EmbedFailed,
		TranslationSeconds: run.Translation.Seconds(),
		GraphWriteSeconds:  run.GraphWrite.Seconds(),
		EmbeddingSeconds:   run.Embedding.Seconds(),
		ElapsedSeconds:     run.Elapsed.Seconds(),
		Reset:              run.Reset,
		Cancelled:          run.Cancelled,
	}
	for _, e := range run.Errors {
		dto.Errors = append(dto.Errors, RunErrorDTO{Document: e.Document, Phase: e.Phase, Message: e.Message})
	}
	return dto
}

func toMatchDTOs(matches []retrieval.Match) []MatchDTO {
	out := make([]MatchDTO, len(matches))
	for i, m := range matches {
		out[i] = MatchDTO{
			SourceID:   m.SourceID,
			ChunkIndex: m.ChunkIndex,
			Text:       m.Text,
			Score:      m.Score,
			Tags:       m.Tags,
			CreatedAt:  m.CreatedAt,
		}
	}
	return out
}
