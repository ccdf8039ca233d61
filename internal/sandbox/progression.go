package sandbox

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Veraticus/schoolctl/internal/model"
)

func (d *dataset) session(id int) (model.Session, bool) {
	for _, s := range d.sessions {
		if s.ID == id {
			return s, true
		}
	}
	return model.Session{}, false
}

func (d *dataset) class(id int) (model.Class, bool) {
	for _, c := range d.classes {
		if c.ID == id {
			return c, true
		}
	}
	return model.Class{}, false
}

func (d *dataset) checkSessions(from, to int) error {
	if from == to {
		return businessError("source and target sessions must differ")
	}
	if _, ok := d.session(from); !ok {
		return businessError("session %d does not exist", from)
	}
	if _, ok := d.session(to); !ok {
		return businessError("session %d does not exist", to)
	}
	return nil
}

func (s *Server) previewProgression(c *gin.Context) {
	var req model.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := s.data.checkSessions(req.FromSessionID, req.ToSessionID); err != nil {
		ruleError(c, err)
		return
	}

	out := model.PreviewResponse{Students: []model.Candidate{}}
	for _, st := range s.data.students.all() {
		if !st.Active() {
			continue
		}
		out.Students = append(out.Students, model.Candidate{
			StudentID: st.ID,
			Name:      st.FullName(),
			ClassID:   st.ClassID,
			ClassName: st.ClassName,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) executeProgression(c *gin.Context) {
	var req model.ExecuteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if err := s.data.checkSessions(req.FromSessionID, req.ToSessionID); err != nil {
		ruleError(c, err)
		return
	}

	res := model.ProgressionResult{Failures: []model.ProgressionFailure{}}
	for _, mv := range req.Actions {
		if err := s.data.move(mv); err != nil {
			res.Failures = append(res.Failures, model.ProgressionFailure{StudentID: mv.StudentID, Reason: err.Error()})
			continue
		}
		res.Processed++
		switch mv.Action {
		case model.ActionPromoted:
			res.Promoted++
		case model.ActionRetained:
			res.Retained++
		case model.ActionDemoted:
			res.Demoted++
		}
	}
	c.JSON(http.StatusOK, res)
}

// move applies one planned action, checking the target class agrees with it.
func (d *dataset) move(mv model.PlannedMove) error {
	if !mv.Action.Valid() {
		return fmt.Errorf("unknown action %q", mv.Action)
	}
	target, ok := d.class(mv.TargetClassID)
	if !ok {
		return fmt.Errorf("class %d does not exist", mv.TargetClassID)
	}

	_, found, err := d.students.update(mv.StudentID, func(st *model.Student) error {
		current, ok := d.class(st.ClassID)
		if !ok {
			return fmt.Errorf("student is not in a known class")
		}
		switch {
		case mv.Action == model.ActionPromoted && target.Order < current.Order:
			return fmt.Errorf("cannot promote from %s to %s", current.Name, target.Name)
		case mv.Action == model.ActionDemoted && target.Order > current.Order:
			return fmt.Errorf("cannot demote from %s to %s", current.Name, target.Name)
		case mv.Action == model.ActionRetained && target.ID != current.ID:
			return fmt.Errorf("retained students stay in %s", current.Name)
		}
		st.ClassID = target.ID
		st.ClassName = target.Name
		return nil
	})
	if !found {
		return fmt.Errorf("student %d does not exist", mv.StudentID)
	}
	return err
}
