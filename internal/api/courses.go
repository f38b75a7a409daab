package api

import (
	"strconv"

	"learnhub-api/internal/response"

	"github.com/gin-gonic/gin"
)

// ListCourses lists all courses
// GET /courses
func (h *Handler) ListCourses(c *gin.Context) {
	courses, err := h.Courses.List(c.Request.Context())
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.SuccessJSON(c, courses)
}

// RandomCourses samples courses
// GET /courses/random?size=3
func (h *Handler) RandomCourses(c *gin.Context) {
	size, _ := strconv.Atoi(c.Query("size"))

	courses, err := h.Courses.Random(c.Request.Context(), size)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.SuccessJSON(c, courses)
}

// GetCourse returns one course with its chapters and videos
// GET /courses/:id
func (h *Handler) GetCourse(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	course, err := h.Courses.Get(c.Request.Context(), id)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.SuccessJSON(c, course)
}
