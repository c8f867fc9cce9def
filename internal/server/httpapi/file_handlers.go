package httpapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/clouds-team/clouds/internal/common"
	"github.com/go-chi/chi/v5"
)

// maxUploadBytes caps a single content upload request.
const maxUploadBytes = 256 << 20

func fileIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "fileID"), 10, 64)
	if err != nil {
		return 0, common.E(common.CodeValidation, "Invalid file id")
	}
	return id, nil
}

func (s *Server) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	var req fileUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	file, err := s.files.CreateMetadata(r.Context(), userIDFrom(r.Context()), req.FileName, req.FileSizeBytes, req.ContentType)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, fileUploadResponse{
		FileID:   file.ID,
		FileName: file.Name,
		Success:  true,
	})
}

func (s *Server) handleFileUploadContent(w http.ResponseWriter, r *http.Request) {
	fileID, err := fileIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, r, common.Wrap(common.CodeValidation, "Invalid multipart request", err))
		return
	}

	part, _, err := r.FormFile("encryptedContent")
	if err != nil {
		s.writeError(w, r, common.Wrap(common.CodeValidation, "Missing encryptedContent part", err))
		return
	}
	defer part.Close()

	content, err := io.ReadAll(part)
	if err != nil {
		s.writeError(w, r, common.Wrap(common.CodeValidation, "Failed to read upload", err))
		return
	}

	err = s.files.AttachContent(r.Context(), fileID, userIDFrom(r.Context()), content,
		r.FormValue("encryptedKey"),
		r.FormValue("iv"),
		r.FormValue("tag"),
		r.FormValue("keyIv"),
	)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "File content uploaded successfully.", nil)
}

func (s *Server) handleFileList(w http.ResponseWriter, r *http.Request) {
	// pages are 0-based on the wire
	page := 0
	if p := r.URL.Query().Get("page"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			s.writeError(w, r, common.E(common.CodeValidation, "Invalid page"))
			return
		}
		page = n
	}

	res, err := s.files.List(r.Context(), userIDFrom(r.Context()), page+1)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	files := make([]userFileDTO, 0, len(res.Items))
	for _, it := range res.Items {
		files = append(files, userFileDTO{
			ID:            it.ID,
			FileName:      it.Name,
			FileSizeBytes: it.SizeBytes,
			ContentType:   it.ContentType,
			CreatedAt:     it.CreatedAt.Format(time.RFC3339),
			Owner:         it.Owner,
		})
	}

	s.writeSuccess(w, "Files retrieved successfully", userFilesResponse{
		Files:        files,
		HasMoreFiles: res.HasMore,
		CurrentPage:  page,
		TotalFiles:   res.Total,
	})
}

func (s *Server) handleFileDetails(w http.ResponseWriter, r *http.Request) {
	fileID, err := fileIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	details, err := s.files.DetailsForDownload(r.Context(), fileID, userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "File details retrieved successfully", fileDetailsResponse{
		FileName:           details.Name,
		FileSize:           details.SizeBytes,
		ContentType:        details.ContentType,
		WrappedKey:         details.WrappedKey,
		IV:                 details.FileIV,
		Tag:                details.FileTag,
		KeyIV:              details.KeyIV,
		SenderPublicKeyHex: details.OwnerPublicKey,
	})
}

func (s *Server) handleFileContent(w http.ResponseWriter, r *http.Request) {
	fileID, err := fileIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	data, err := s.files.DownloadContent(r.Context(), fileID, userIDFrom(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleFileDelete(w http.ResponseWriter, r *http.Request) {
	fileID, err := fileIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.files.Delete(r.Context(), fileID, userIDFrom(r.Context())); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "File deleted successfully.", nil)
}

func (s *Server) handleFileTransfer(w http.ResponseWriter, r *http.Request) {
	var req fileTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	err := s.files.Transfer(r.Context(), req.FileID, userIDFrom(r.Context()),
		req.RecipientEmail, req.NewWrappedKey, req.NewKeyIV)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeSuccess(w, "File transferred successfully.", nil)
}
