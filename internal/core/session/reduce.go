package session

import (
	"github.com/neilberkman/docchat/internal/core/models"
	"github.com/neilberkman/docchat/internal/core/records"
)

// Reduce applies e to s and returns the next snapshot plus any follow-up
// events the caller must apply in the same dispatch. s is never modified.
// Events addressed to another session are dropped.
func Reduce(s State, e Event) (State, []Event) {
	if ev, ok := e.(NewChat); ok {
		next := NewState(ev.SessionID)
		next.SidebarVisible = s.SidebarVisible
		return next, nil
	}

	if e.session() != s.SessionID {
		return s, nil
	}

	switch ev := e.(type) {
	case FilesSelected:
		return filesSelected(s, ev), nil
	case ProgressTicked:
		if files, ok := s.Files.UpdateStatus(ev.FileID, models.StatusUploading, records.WithProgress(ev.Progress)); ok {
			s.Files = files
		}
		return s, nil
	case StageAdvanced:
		return stageAdvanced(s, ev)
	case BatchCompleted:
		return batchCompleted(s, ev), nil
	case MessageSent:
		return messageSent(s, ev), nil
	case MessageAnswered:
		return resolvePending(s, ev.ReplyTo, models.Message{
			Role:      models.RoleAssistant,
			Content:   ev.Content,
			Timestamp: ev.At,
		}), nil
	case MessageFailed:
		return resolvePending(s, ev.ReplyTo, models.Message{
			Role:      models.RoleAssistant,
			Content:   FailureMessage(ev.Err),
			Timestamp: ev.At,
			IsError:   true,
		}), nil
	case SidebarToggled:
		s.SidebarVisible = !s.SidebarVisible
		return s, nil
	}

	return s, nil
}

func filesSelected(s State, ev FilesSelected) State {
	if len(ev.Files) == 0 {
		return s
	}

	batch := Batch{ID: ev.BatchID}
	added := make([]models.FileRecord, 0, len(ev.Files))
	for _, f := range ev.Files {
		f.BatchID = ev.BatchID
		f.Status = models.StatusUploading
		f.Progress = 0
		f.Err = ""
		added = append(added, f)
		batch.FileIDs = append(batch.FileIDs, f.ID)
	}

	s.Files, _ = s.Files.AddBatch(added)
	s.batches = append(append([]Batch(nil), s.batches...), batch)
	return s
}

func stageAdvanced(s State, ev StageAdvanced) (State, []Event) {
	var extra records.Update
	if ev.Status == models.StatusError {
		extra = records.WithError(ev.Err)
	}

	files, ok := s.Files.UpdateStatus(ev.FileID, ev.Status, extra)
	if !ok {
		return s, nil
	}
	s.Files = files

	if !ev.Status.Terminal() {
		return s, nil
	}

	i := s.batchOf(ev.FileID)
	if i < 0 {
		return s, nil
	}

	batches := append([]Batch(nil), s.batches...)
	b := batches[i]
	b.Terminal++
	batches[i] = b
	s.batches = batches

	if b.Done || b.Terminal < b.Size() {
		return s, nil
	}

	done := BatchCompleted{SessionID: s.SessionID, BatchID: b.ID, At: ev.At}
	for _, id := range b.FileIDs {
		rec, _ := s.Files.Get(id)
		if rec.Status == models.StatusReady {
			done.Ready = append(done.Ready, rec.Name)
		} else {
			done.Failed = append(done.Failed, rec.Name)
		}
	}
	return s, []Event{done}
}

func batchCompleted(s State, ev BatchCompleted) State {
	i := s.batchIndex(ev.BatchID)
	if i < 0 || s.batches[i].Done {
		return s
	}

	batches := append([]Batch(nil), s.batches...)
	batches[i].Done = true
	s.batches = batches

	s = appendMessage(s, models.Message{
		Role:      models.RoleAssistant,
		Content:   BatchSummary(ev.Ready, ev.Failed),
		Timestamp: ev.At,
		IsError:   len(ev.Ready) == 0,
	})

	if len(ev.Ready) > 0 {
		s.chatReady = true
		s.SidebarVisible = true
	}
	return s
}

func messageSent(s State, ev MessageSent) State {
	s = appendMessage(s, models.Message{
		Role:      models.RoleUser,
		Content:   ev.Text,
		Timestamp: ev.At,
	})
	id := s.messages[len(s.messages)-1].ID
	s.pending = append(append([]string(nil), s.pending...), id)
	return s
}

// resolvePending appends reply for a waiting user message, at most once
func resolvePending(s State, replyTo string, reply models.Message) State {
	idx := -1
	for i, id := range s.pending {
		if id == replyTo {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}

	pending := make([]string, 0, len(s.pending)-1)
	pending = append(pending, s.pending[:idx]...)
	s.pending = append(pending, s.pending[idx+1:]...)

	reply.ReplyTo = replyTo
	return appendMessage(s, reply)
}

func appendMessage(s State, m models.Message) State {
	m.ID = s.nextMessageID()
	msgs := make([]models.Message, len(s.messages), len(s.messages)+1)
	copy(msgs, s.messages)
	s.messages = append(msgs, m)
	return s
}
