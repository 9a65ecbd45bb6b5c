package ui

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"survivaldash/domain/prediction"
	"survivaldash/internal/errors"

	"github.com/gin-gonic/gin"
)

func (s *Server) predictPage(req prediction.Request) gin.H {
	return gin.H{
		"Title":   "Will you survive?",
		"Page":    "predict",
		"Form":    req,
		"Sexes":   prediction.Sexes,
		"Classes": prediction.Classes,
		"Ports":   prediction.Ports,
		"MinAge":  prediction.MinAge,
		"MaxAge":  prediction.MaxAge,
		"MinFare": prediction.MinFare,
		"MaxFare": prediction.MaxFare,
	}
}

// handlePredictForm shows the form with its defaults
func (s *Server) handlePredictForm(c *gin.Context) {
	s.renderTemplate(c, http.StatusOK, "predict.html", s.predictPage(prediction.Request{
		Sex:      prediction.Sexes[0],
		Age:      prediction.DefaultAge,
		Pclass:   prediction.Classes[0],
		Fare:     prediction.DefaultFare,
		Embarked: prediction.Ports[0],
	}))
}

// handlePredict scores the submitted passenger and shows the verdict
func (s *Server) handlePredict(c *gin.Context) {
	req, err := parsePredictForm(c)
	data := s.predictPage(req)
	if err != nil {
		s.renderError(c, "predict.html", data, err)
		return
	}

	out, err := s.prediction.Predict(c.Request.Context(), req)
	if err != nil {
		s.renderError(c, "predict.html", data, err)
		return
	}
	data["Outcome"] = out
	data["Message"] = renderMarkdown(out.Message)
	s.renderTemplate(c, http.StatusOK, "predict.html", data)
}

func parsePredictForm(c *gin.Context) (prediction.Request, error) {
	req := prediction.Request{
		Sex:      c.PostForm("sex"),
		Embarked: c.PostForm("embarked"),
	}
	ints := []struct {
		field string
		dst   *int
	}{
		{"age", &req.Age},
		{"pclass", &req.Pclass},
		{"fare", &req.Fare},
	}
	for _, f := range ints {
		raw := strings.TrimSpace(c.PostForm(f.field))
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.InvalidInput(fmt.Sprintf("%s must be a whole number, got %q", f.field, raw))
		}
		*f.dst = n
	}
	return req, nil
}
