package controllers

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"civicsync/media"
	"civicsync/models"
)

// MaxMediaFileSize caps each uploaded attachment.
const MaxMediaFileSize = 25 << 20

type MediaController struct {
	uploader *media.Uploader
	logger   *log.Logger
}

func NewMediaController(uploader *media.Uploader, logger *log.Logger) *MediaController {
	return &MediaController{uploader: uploader, logger: logger}
}

// UploadMedia ingests the multipart "files" field. Files that fail are
// listed in failures and the rest still come back.
func (mc *MediaController) UploadMedia(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Expected a multipart form"})
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	files := make([]media.File, 0, len(headers))
	failures := []media.Failure{}
	for _, fh := range headers {
		f, err := readPart(fh)
		if err != nil {
			mc.logger.Warn("skipping unreadable upload", "name", fh.Filename, "err", err)
			failures = append(failures, media.Failure{Name: fh.Filename, Error: err.Error()})
			continue
		}
		files = append(files, f)
	}

	ingested, failed := mc.uploader.IngestAll(c.Request.Context(), files)
	failures = append(failures, failed...)
	if ingested == nil {
		ingested = []models.Media{}
	}

	c.JSON(http.StatusOK, gin.H{"media": ingested, "failures": failures})
}

func readPart(fh *multipart.FileHeader) (media.File, error) {
	if fh.Size > MaxMediaFileSize {
		return media.File{}, fmt.Errorf("file exceeds %d bytes", MaxMediaFileSize)
	}
	src, err := fh.Open()
	if err != nil {
		return media.File{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return media.File{}, err
	}
	// Browsers and multipart writers default to octet-stream; sniff instead.
	contentType := fh.Header.Get("Content-Type")
	if contentType == "application/octet-stream" {
		contentType = ""
	}
	return media.File{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}
