// Package media 媒体文件上传，实际存储由外部服务完成
package media

import (
	"context"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/apperror"
	"github.com/ANTONINEUTRON/tita-flow-sub001/internal/logger"
	"github.com/google/uuid"
)

const maxFilesPerUpload = 10

// Uploader 外部媒体服务，返回可长期访问的 URL
type Uploader interface {
	Upload(ctx context.Context, file io.Reader, folder, publicID string) (string, error)
}

// File 待上传文件
type File struct {
	Name   string
	Reader io.Reader
}

// FlowMedia 流程的图片与视频，Key 为服务端生成的媒体标识
type FlowMedia struct {
	Key    string   `json:"key"`
	Images []string `json:"images"`
	Video  string   `json:"video,omitempty"`
}

// Service 按目录约定组织上传
type Service struct {
	uploader Uploader
	root     string
	newKey   func() string
}

func NewService(uploader Uploader, root string) *Service {
	return &Service{uploader: uploader, root: strings.Trim(root, "/"), newKey: uuid.NewString}
}

func (s *Service) folder(key string) string {
	if s.root == "" {
		return key
	}
	return path.Join(s.root, key)
}

// Upload 将文件上传到 folderKey 目录，任一失败则整体失败
func (s *Service) Upload(ctx context.Context, files []File, folderKey string, publicIDs []string) ([]string, error) {
	if len(files) == 0 {
		return nil, apperror.Invalid("files", "至少需要一个文件")
	}
	if len(files) > maxFilesPerUpload {
		return nil, apperror.Invalid("files", "最多%d个文件", maxFilesPerUpload)
	}

	folder := s.folder(folderKey)
	urls := make([]string, 0, len(files))
	for i, f := range files {
		publicID := uuid.NewString()
		if i < len(publicIDs) && publicIDs[i] != "" {
			publicID = publicIDs[i]
		}
		url, err := s.uploader.Upload(ctx, f.Reader, folder, publicID)
		if err != nil {
			logger.Error("Upload %s to %s failed: %v", f.Name, folder, err)
			return nil, apperror.Dependency(err, "文件上传失败")
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// UploadFlowMedia 图片存入 flow_images/<key>_<i>，视频存入 flow_videos/<key>
// key 每次上传新生成，客户端无法指定，不同用户的上传不会互相覆盖
func (s *Service) UploadFlowMedia(ctx context.Context, images []File, video *File) (*FlowMedia, error) {
	if len(images) == 0 && video == nil {
		return nil, apperror.Invalid("files", "至少需要一张图片或一个视频")
	}

	key := s.newKey()
	out := &FlowMedia{Key: key, Images: []string{}}
	if len(images) > 0 {
		ids := make([]string, len(images))
		for i := range images {
			ids[i] = key + "_" + strconv.Itoa(i)
		}
		urls, err := s.Upload(ctx, images, "flow_images", ids)
		if err != nil {
			return nil, err
		}
		out.Images = urls
	}
	if video != nil {
		urls, err := s.Upload(ctx, []File{*video}, "flow_videos", []string{key})
		if err != nil {
			return nil, err
		}
		out.Video = urls[0]
	}
	return out, nil
}

// UploadUserFile 用户文件存入 user_uploads/<userId>
func (s *Service) UploadUserFile(ctx context.Context, userId string, f File) (string, error) {
	if userId == "" {
		return "", apperror.Invalid("user_id", "不能为空")
	}
	urls, err := s.Upload(ctx, []File{f}, path.Join("user_uploads", userId), nil)
	if err != nil {
		return "", err
	}
	return urls[0], nil
}
