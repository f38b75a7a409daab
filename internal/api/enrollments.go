package api

import (
	"net/http"

	"learnhub-api/internal/response"
	"learnhub-api/internal/services"

	"github.com/gin-gonic/gin"
)

// ProgressRequest marks progress on a chapter
type ProgressRequest struct {
	ChapterID uint  `json:"chapterId" binding:"required"`
	Completed *bool `json:"completed"`
}

// Enroll enrolls the current user in a course
// POST /enrollments/:courseId
func (h *Handler) Enroll(c *gin.Context) {
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	result, err := h.Enrollments.Enroll(c.Request.Context(), user.ID, courseID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.MessageJSON(c, http.StatusCreated, "Successfully enrolled in course", result)
}

// Unenroll removes the current user's enrollment
// DELETE /enrollments/:courseId
func (h *Handler) Unenroll(c *gin.Context) {
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	if err := h.Enrollments.Unenroll(c.Request.Context(), user.ID, courseID); err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.MessageJSON(c, http.StatusOK, "Successfully unenrolled from course", nil)
}

// GetEnrollmentStatus reports whether the current user is enrolled
// GET /enrollments/:courseId/status
func (h *Handler) GetEnrollmentStatus(c *gin.Context) {
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}

	status, err := h.Enrollments.EnrollmentStatus(c.Request.Context(), user.ID, courseID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.SuccessJSON(c, status)
}

// UpdateProgress records chapter progress
// POST /enrollments/:courseId/progress
func (h *Handler) UpdateProgress(c *gin.Context) {
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}
	courseID, ok := idParam(c, "courseId")
	if !ok {
		return
	}
	var req ProgressRequest
	if !bindJSON(c, &req) {
		return
	}

	completed := true
	if req.Completed != nil {
		completed = *req.Completed
	}

	enrollment, err := h.Enrollments.UpdateProgress(c.Request.Context(), user.ID, courseID, services.ProgressUpdate{
		ChapterID: req.ChapterID,
		Completed: completed,
	})
	if err != nil {
		response.AbortWithError(c, err)
		return
	}
	response.SuccessJSON(c, enrollment)
}

// ListEnrolledCourses lists the current user's enrollments. An inactive
// subscription removes them all.
// GET /student/enrolled-courses
func (h *Handler) ListEnrolledCourses(c *gin.Context) {
	user, ok := currentUser(c, nil)
	if !ok {
		return
	}

	listing, err := h.Enrollments.ListEnrollments(c.Request.Context(), user.ID)
	if err != nil {
		response.AbortWithError(c, err)
		return
	}

	message := "success"
	if listing.Message != "" {
		message = listing.Message
	}
	response.MessageJSON(c, http.StatusOK, message, listing)
}
