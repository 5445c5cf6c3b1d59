package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"gocv.io/x/gocv"
)

// ErrBadImage is returned for uploads that do not decode to an image.
var ErrBadImage = errors.New("failed to decode image")

// FormField is the multipart field carrying the frame.
const FormField = "file"

// ReadFrame decodes the uploaded frame of r. The image is either the
// multipart field "file" or the raw request body. The caller closes the Mat.
func ReadFrame(w http.ResponseWriter, r *http.Request, maxBytes int64) (gocv.Mat, error) {
	data, err := readUpload(w, r, maxBytes)
	if err != nil {
		return gocv.Mat{}, err
	}
	return DecodeImage(data)
}

// DecodeImage decodes an encoded image into a BGR Mat.
func DecodeImage(data []byte) (gocv.Mat, error) {
	if len(data) == 0 {
		return gocv.Mat{}, fmt.Errorf("%w: empty upload", ErrBadImage)
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.Mat{}, ErrBadImage
	}
	return mat, nil
}

func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if strings.HasPrefix(mediaType, "multipart/") {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
		}
		file, _, err := r.FormFile(FormField)
		if err != nil {
			return nil, fmt.Errorf("%w: missing %q field", ErrBadImage, FormField)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadImage, err)
	}
	return data, nil
}
