package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestPromotionHandlerRejectsInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPromotionHandler(nil)

	cases := []struct {
		name string
		run  gin.HandlerFunc
		body string
	}{
		{"promote missing ids", handler.Promote, `{"studentId":"student-1"}`},
		{"bulk promote missing class", handler.PromoteBulk, `{"sourceAcademicYearId":"y1","targetAcademicYearId":"y2"}`},
		{"re-admit missing section", handler.ReAdmit, `{"studentId":"s1","targetAcademicYearId":"y1","targetClassId":"c1"}`},
		{"bulk re-admit empty students", handler.ReAdmitBulk, `{"studentIds":[],"targetAcademicYearId":"y1","targetClassId":"c1","targetSectionId":"s1"}`},
		{"malformed json", handler.Promote, `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			req, _ := http.NewRequest(http.MethodPost, "/promotions", bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			c.Request = req

			tc.run(c)
			require.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
