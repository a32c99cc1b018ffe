package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/agrineural/agrineural/internal/middleware"
	"github.com/agrineural/agrineural/internal/services"
	"github.com/gin-gonic/gin"
)

// multipart framing allowance on top of the image size limit
const formOverhead = 1 << 20

type ImageHandler struct {
	ingestService  *services.IngestService
	reportService  *services.ReportService
	maxUploadBytes int64
}

func NewImageHandler(ingestService *services.IngestService, reportService *services.ReportService, maxUploadBytes int64) *ImageHandler {
	return &ImageHandler{
		ingestService:  ingestService,
		reportService:  reportService,
		maxUploadBytes: maxUploadBytes,
	}
}

type UploadImageResponse struct {
	ImageID   uint `json:"image_id"`
	FarmID    uint `json:"farm_id"`
	Anomalous bool `json:"anomalous"`
}

// UploadImage godoc
// @Summary Upload an aerial image
// @Description Stores the image, classifies it and records the verdict atomically.
// @Tags images
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Image file"
// @Param farm_id formData int true "Farm ID"
// @Param lat formData number true "Capture latitude"
// @Param lon formData number true "Capture longitude"
// @Success 201 {object} UploadImageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /images [post]
func (h *ImageHandler) UploadImage(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+formOverhead)
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			badRequest(c, "image too large")
			return
		}
		badRequest(c, "invalid multipart form")
		return
	}

	farmID, err := strconv.ParseUint(formValue(c, "farm_id", "farmId"), 10, 64)
	if err != nil || farmID == 0 {
		badRequest(c, "farm_id is required")
		return
	}
	lat, err := strconv.ParseFloat(formValue(c, "lat", "latitude"), 64)
	if err != nil {
		badRequest(c, "lat is required")
		return
	}
	lon, err := strconv.ParseFloat(formValue(c, "lon", "longitude"), 64)
	if err != nil {
		badRequest(c, "lon is required")
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	defer file.Close()

	reader := io.Reader(file)
	if h.maxUploadBytes > 0 {
		reader = io.LimitReader(file, h.maxUploadBytes+1)
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		respondError(c, err)
		return
	}

	result, err := h.ingestService.Ingest(c.Request.Context(), services.IngestInput{
		FarmID:       uint(farmID),
		CallerID:     middleware.GetCallerID(c),
		Data:         data,
		OriginalName: fileHeader.Filename,
		Latitude:     lat,
		Longitude:    lon,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, UploadImageResponse{
		ImageID:   result.ImageID,
		FarmID:    result.FarmID,
		Anomalous: result.Anomalous,
	})
}

// GetImageFile godoc
// @Summary Download a stored image
// @Tags images
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Farm ID"
// @Param imageId path int true "Image ID"
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /farms/{id}/images/{imageId}/file [get]
func (h *ImageHandler) GetImageFile(c *gin.Context) {
	farmID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	imageID, ok := uintParam(c, "imageId")
	if !ok {
		return
	}

	rc, image, err := h.reportService.OpenImage(c.Request.Context(), farmID, imageID, middleware.GetCallerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(image.StoragePath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.DataFromReader(http.StatusOK, -1, contentType, rc, map[string]string{
		"Content-Disposition": mime.FormatMediaType("inline", map[string]string{"filename": path.Base(image.StoragePath)}),
	})
}

func formValue(c *gin.Context, names ...string) string {
	for _, name := range names {
		if v := c.PostForm(name); v != "" {
			return v
		}
	}
	return ""
}
