package web

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ritzau/link-analyzer/pkg/analysis"
	"github.com/ritzau/link-analyzer/pkg/jobs"
	"github.com/ritzau/link-analyzer/pkg/pubsub"
)

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	f, err := readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	kind, err := analysis.ParseKind(r.FormValue("kind"))
	if err != nil {
		fail(w, r, err)
		return
	}

	job := s.jobs.Submit(r.Context(), f, kind)
	w.Header().Set("Location", "/api/jobs/"+job.ID)
	writeJSON(w, http.StatusAccepted, job.Snapshot())
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.jobs.List())
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.jobs.Cancel(id) {
		writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "canceling"})
}

// handleJobEvents streams a job's events, replaying those already sent, and
// ends after the result or error event.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.jobs.Get(id); !ok {
		writeError(w, r, http.StatusNotFound, "job not found")
		return
	}
	s.stream(w, r, pubsub.JobTopic(id), func(e pubsub.Event) bool {
		return e.Type == string(jobs.EventResult) || e.Type == string(jobs.EventError)
	})
}

func (s *Server) handleInboxEvents(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, pubsub.InboxTopic, nil)
}

// stream writes a topic as server-sent events until the client leaves, the
// publisher closes, or last reports true for a written event.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, topic string, last func(pubsub.Event) bool) {
	sub, err := s.publisher.Subscribe(r.Context(), topic)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, _ := w.(http.Flusher)
	flush := func() {
		if flusher != nil {
			flusher.Flush()
		}
	}

	// Initial comment establishes the connection (Safari)
	fmt.Fprintf(w, ": connected\n\n")
	flush()

	for event := range sub.Events() {
		if err := pubsub.WriteSSE(w, event); err != nil {
			s.logger.Debug("error writing SSE event", "topic", topic, "error", err)
			return
		}
		flush()
		if last != nil && last(event) {
			return
		}
	}
}
