package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go-model-inference/internal/config"
	apperrors "go-model-inference/internal/errors"
	"go-model-inference/internal/inference"
	"go-model-inference/internal/logger"
	"go-model-inference/internal/preprocess"
	"go-model-inference/internal/repository"
	"go-model-inference/internal/storage"
	"go-model-inference/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// MissingInputMessage is returned when an image route gets neither file nor fileUrl
const MissingInputMessage = "Either file or fileUrl is required"

const multipartMemory = 32 << 20

// Options wires the HTTP surface of one app. Exactly one of Classifier and
// Assessor is set.
type Options struct {
	App         string
	Title       string
	Config      *config.Config
	Classifier  *inference.ImageClassifier
	Assessor    *inference.StrokeAssessor
	Images      repository.ImageRepository
	LegacyRoute bool
	TextReport  bool
}

type handler struct {
	opts Options
	log  *logrus.Entry
}

// NewHandler builds the gin engine for one app
func NewHandler(opts Options) http.Handler {
	if opts.Images == nil {
		opts.Images = repository.NewRemoteImageRepository(opts.App, storage.NewHTTPImageFetcher(), nil, nil)
	}
	h := &handler{opts: opts, log: logger.ForApp(opts.App)}

	r := gin.New()
	r.Use(
		requestID(),
		requestLogger(h.log),
		gin.CustomRecovery(h.recoverWithFallback),
		cors(opts.Config.AllowedOrigins),
		requestSizeLimiter(opts.Config.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/", h.status)
	r.GET("/health", h.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.Assessor != nil {
		r.POST("/api/predict", h.predictStroke)
	} else {
		r.POST("/api/predict", h.predictImage)
		if opts.LegacyRoute {
			r.POST("/predict", h.predictUpload)
		}
	}

	return r
}

func (h *handler) status(c *gin.Context) {
	c.JSON(http.StatusOK, models.StatusResponse{
		Message: fmt.Sprintf("%s API is running! Use /api/predict for predictions.", h.opts.Title),
	})
}

func (h *handler) health(c *gin.Context) {
	var loaded bool
	var loadErr error
	if h.opts.Assessor != nil {
		loaded, loadErr = h.opts.Assessor.ModelStatus()
	} else {
		loaded, loadErr = h.opts.Classifier.ModelStatus()
	}

	resp := models.HealthResponse{
		Status:      "available",
		App:         h.opts.App,
		ModelLoaded: loaded,
		Version:     Version,
		Time:        time.Now().UTC().Format(time.RFC3339),
	}
	if !loaded {
		resp.Status = "degraded"
		if loadErr != nil {
			resp.ModelError = loadErr.Error()
		}
	}
	c.JSON(http.StatusOK, resp)
}

// predictImage accepts a multipart upload in "file" or a remote image in "fileUrl"
func (h *handler) predictImage(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	start := time.Now()

	data, found, err := readUpload(c)
	if err != nil {
		h.uploadFailed(ctx, c, err, start)
		return
	}
	if found {
		h.respondImage(c, h.opts.Classifier.Predict(ctx, data, inference.SourceUpload))
		return
	}

	fileURL := strings.TrimSpace(c.PostForm("fileUrl"))
	if fileURL == "" {
		c.JSON(http.StatusOK, models.ErrorResponse{Error: MissingInputMessage})
		return
	}

	data, err = h.opts.Images.FetchImage(ctx, fileURL)
	if err != nil {
		h.respondImage(c, h.opts.Classifier.Degrade(ctx, err, inference.SourceURL, start))
		return
	}
	h.respondImage(c, h.opts.Classifier.Predict(ctx, data, inference.SourceURL))
}

// predictUpload is the legacy upload-only route
func (h *handler) predictUpload(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()
	start := time.Now()

	data, found, err := readUpload(c)
	if err != nil {
		h.uploadFailed(ctx, c, err, start)
		return
	}
	if !found {
		c.JSON(http.StatusOK, models.ErrorResponse{Error: MissingInputMessage})
		return
	}
	h.respondImage(c, h.opts.Classifier.Predict(ctx, data, inference.SourceUpload))
}

func (h *handler) predictStroke(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if err := parseForm(c); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(err)
			return
		}
		h.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).
			Warn("Malformed stroke form, defaults applied")
	}

	c.JSON(http.StatusOK, h.opts.Assessor.Assess(ctx, h.strokeInput(c)))
}

// strokeInput reads the stroke fields from the parsed form, logging any
// that had to be defaulted
func (h *handler) strokeInput(c *gin.Context) preprocess.StrokeInput {
	in, problems := preprocess.ParseStrokeForm(c.GetPostForm)
	for _, p := range problems {
		h.log.WithError(p).WithField("request_id", c.GetString(requestIDKey)).
			Warn("Ignoring unparseable stroke field, default applied")
	}
	return in
}

// parseForm reads a urlencoded or multipart body so that an oversize body
// surfaces as an error instead of an empty form
func parseForm(c *gin.Context) error {
	if err := c.Request.ParseForm(); err != nil {
		return err
	}
	err := c.Request.ParseMultipartForm(multipartMemory)
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return err
	}
	return nil
}

func (h *handler) uploadFailed(ctx context.Context, c *gin.Context, err error, start time.Time) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		_ = c.Error(apperrors.NewValidationError(fmt.Sprintf("body exceeds %d bytes", tooLarge.Limit), err))
		return
	}
	h.respondImage(c, h.opts.Classifier.Degrade(ctx,
		apperrors.NewInputError("failed to read upload", err), inference.SourceUpload, start))
}

func (h *handler) respondImage(c *gin.Context, resp *models.ImagePrediction) {
	if h.opts.TextReport && c.Query("format") == "text" {
		c.String(http.StatusOK, inference.TextReport(resp, h.opts.Classifier.Classes()))
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.opts.Config.RequestTimeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.opts.Config.RequestTimeout)
}

// recoverWithFallback turns a panic on a prediction route into a degraded
// response instead of a bare 500
func (h *handler) recoverWithFallback(c *gin.Context, recovered interface{}) {
	err := apperrors.NewInternalError(fmt.Sprintf("panic: %v", recovered), nil)
	h.log.WithError(err).WithFields(logrus.Fields{
		"path":       c.Request.URL.Path,
		"request_id": c.GetString(requestIDKey),
	}).Error("Recovered from panic")

	if c.Request.Method != http.MethodPost {
		respondError(c, http.StatusInternalServerError, "internal error", err)
		return
	}

	ctx := c.Request.Context()
	if h.opts.Assessor != nil {
		c.AbortWithStatusJSON(http.StatusOK, h.opts.Assessor.Degrade(ctx, err, h.strokeInput(c)))
		return
	}
	c.AbortWithStatusJSON(http.StatusOK, h.opts.Classifier.Degrade(ctx, err, inference.SourceUpload, time.Now()))
}

// readUpload returns the bytes of the "file" part. found is false when the
// request carries no such part.
func readUpload(c *gin.Context) ([]byte, bool, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, false, err
		}
		return nil, false, nil
	}

	f, err := fh.Open()
	if err != nil {
		return nil, true, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, true, err
	}
	return data, true, nil
}
