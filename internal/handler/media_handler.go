package handler

import (
	"mime/multipart"
	"net/http"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/media"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/middleware"
	"github.com/gin-gonic/gin"
)

// 超出部分写入临时文件
const multipartMemory = 8 << 20

type MediaHandler struct {
	mediaService *media.Service
	maxBytes     int64
}

func NewMediaHandler(service *media.Service, maxBytes int64) *MediaHandler {
	return &MediaHandler{mediaService: service, maxBytes: maxBytes}
}

func (h *MediaHandler) parseForm(c *gin.Context) (*multipart.Form, bool) {
	if h.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes)
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		HandleError(c, apperror.Invalid("files", "上传内容无效或超出大小限制: %v", err))
		return nil, false
	}
	return c.Request.MultipartForm, true
}

// openAll 打开表单文件，返回的 closeFn 负责全部关闭
func openAll(headers []*multipart.FileHeader) ([]media.File, func(), error) {
	files := make([]media.File, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))
	closeFn := func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeFn()
			return nil, nil, apperror.Invalid("files", "无法读取文件 %s", fh.Filename)
		}
		closers = append(closers, f)
		files = append(files, media.File{Name: fh.Filename, Reader: f})
	}
	return files, closeFn, nil
}

// UploadFlowMedia 表单字段: image (可多个), video (可选)，存储位置由服务端生成
func (h *MediaHandler) UploadFlowMedia(c *gin.Context) {
	form, ok := h.parseForm(c)
	if !ok {
		return
	}

	images, closeImages, err := openAll(form.File["image"])
	if err != nil {
		HandleError(c, err)
		return
	}
	defer closeImages()

	var video *media.File
	if headers := form.File["video"]; len(headers) > 0 {
		videos, closeVideos, err := openAll(headers[:1])
		if err != nil {
			HandleError(c, err)
			return
		}
		defer closeVideos()
		video = &videos[0]
	}

	result, err := h.mediaService.UploadFlowMedia(c.Request.Context(), images, video)
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "上传成功", result)
}

// UploadUserFile 表单字段: file
func (h *MediaHandler) UploadUserFile(c *gin.Context) {
	form, ok := h.parseForm(c)
	if !ok {
		return
	}
	headers := form.File["file"]
	if len(headers) == 0 {
		HandleError(c, apperror.Invalid("file", "不能为空"))
		return
	}

	files, closeFiles, err := openAll(headers[:1])
	if err != nil {
		HandleError(c, err)
		return
	}
	defer closeFiles()

	url, err := h.mediaService.UploadUserFile(c.Request.Context(), middleware.UserID(c), files[0])
	if err != nil {
		HandleError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, "上传成功", gin.H{"url": url})
}
