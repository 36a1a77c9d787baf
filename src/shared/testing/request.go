package testing

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"

	"github.com/onsi/gomega"
)

// UploadRequestFactory builds the multipart form request that the
// submit endpoint consumes.
type UploadRequestFactory struct {
	Target      string
	Filename    string
	FileContent []byte
	Fields      map[string]string
}

func (u UploadRequestFactory) MakeFake() *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if u.Filename != "" || u.FileContent != nil {
		part, err := writer.CreateFormFile("audio_file", u.Filename)
		gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

		_, err = io.Copy(part, bytes.NewReader(u.FileContent))
		gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())
	}

	for key, value := range u.Fields {
		err := writer.WriteField(key, value)
		gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())
	}

	err := writer.Close()
	gomega.ExpectWithOffset(1, err).NotTo(gomega.HaveOccurred())

	request := httptest.NewRequest("POST", u.Target, body)
	request.Header.Set("Content-Type", writer.FormDataContentType())

	return request
}
