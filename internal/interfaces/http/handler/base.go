package handler

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/sapogeth/qylysh-higgsfiled/internal/interfaces/http/dto"
	apperrors "github.com/sapogeth/qylysh-higgsfiled/pkg/errors"
	"github.com/sapogeth/qylysh-higgsfiled/pkg/logger"
)

// respondError 应用错误按错误码返回，其余记录日志后返回 500
func respondError(c *gin.Context, err error, msg string) {
	if apperrors.IsAppError(err) {
		dto.AppError(c, err)
		return
	}
	logger.Error(c.Request.Context(), msg, err)
	dto.InternalError(c, msg)
}

// bindError 请求体解析失败
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		dto.AppError(c, apperrors.New(apperrors.CodePayloadTooLarge, "request body too large"))
		return
	}
	dto.BadRequest(c, err.Error())
}

// readFile 读取上传文件，空文件视为参数错误
func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "open upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInvalidParam, "read upload")
	}
	if len(data) == 0 {
		return nil, apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("file %q is empty", fh.Filename))
	}
	return data, nil
}

// multipartForm 解析 multipart 表单
func multipartForm(c *gin.Context) (*multipart.Form, bool) {
	form, err := c.MultipartForm()
	if err != nil {
		bindError(c, err)
		return nil, false
	}
	return form, true
}

// sortedFileFields 表单中带文件的字段名，按名称排序
func sortedFileFields(form *multipart.Form) []string {
	names := make([]string, 0, len(form.File))
	for name, files := range form.File {
		if len(files) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
