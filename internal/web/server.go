package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/molcards/internal/domain"
	"github.com/conorfennell/molcards/internal/importer"
	"github.com/conorfennell/molcards/internal/library"
	"github.com/conorfennell/molcards/internal/quiz"
	"github.com/conorfennell/molcards/internal/tabular"
)

//go:embed all:static
var staticFiles embed.FS

//go:embed all:templates
var templateFiles embed.FS

const (
	minQuestions = 5
	maxQuestions = 30
	maxUpload    = 10 << 20
)

// Options configures the server.
type Options struct {
	ReposDir  string
	QuizCount int
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	lib       *library.Library
	router    *http.ServeMux
	templates *template.Template
	sessions  *sessionStore
	opts      Options
	now       func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(lib *library.Library, opts Options) *Server {
	tpl := template.Must(template.New("").Funcs(template.FuncMap{
		"seconds": func(d time.Duration) int { return int(d.Seconds()) },
	}).ParseFS(templateFiles, "templates/*.html"))

	s := &Server{
		lib:       lib,
		router:    http.NewServeMux(),
		templates: tpl,
		sessions:  newSessionStore(),
		opts:      opts,
		now:       time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets: %v", err))
	}
	s.router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.router.Handle("GET /{$}", http.RedirectHandler("/quiz", http.StatusSeeOther))

	s.router.HandleFunc("GET /molecules", s.handleGetMolecules())
	s.router.HandleFunc("POST /molecules", s.handlePostMolecule())

	s.router.HandleFunc("GET /quiz", s.handleGetQuiz())
	s.router.HandleFunc("POST /quiz", s.handlePostQuiz())
	s.router.HandleFunc("POST /quiz/random", s.handlePostRandomQuiz())
	s.router.HandleFunc("GET /quiz/play", s.handleGetPlay())
	s.router.HandleFunc("POST /quiz/play", s.handlePostPlay())

	s.router.HandleFunc("GET /transfer", s.handleGetTransfer())
	s.router.HandleFunc("GET /export", s.handleGetExport())
	s.router.HandleFunc("POST /import", s.handlePostImport())
	s.router.HandleFunc("POST /import/source", s.handlePostImportSource())
}

// render executes a template into a buffer so a failure never sends half a page.
func (s *Server) render(w http.ResponseWriter, status int, name string, data map[string]interface{}) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Error rendering template", "template", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// formFields lists the add-form inputs in display order.
var formFields = []domain.Field{
	domain.FieldName,
	domain.FieldFormula,
	domain.FieldPharmacologicalFamily,
	domain.FieldChemicalFamily,
	domain.FieldBrandNames,
	domain.FieldRole,
	domain.FieldImage,
}

func (s *Server) moleculesPage(w http.ResponseWriter, r *http.Request, status int, data map[string]interface{}) {
	molecules, err := s.lib.List(r.Context())
	if err != nil {
		slog.Error("Error listing molecules", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	data["Active"] = "molecules"
	data["Molecules"] = molecules
	data["FormFields"] = formFields
	if _, ok := data["Form"]; !ok {
		data["Form"] = domain.Molecule{}
	}
	s.render(w, status, "molecules", data)
}

// handleGetMolecules renders the record set and the add form.
func (s *Server) handleGetMolecules() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := map[string]interface{}{}
		if r.URL.Query().Get("added") != "" {
			data["Flash"] = fmt.Sprintf("%s ajoutée ✅", r.URL.Query().Get("added"))
		}
		s.moleculesPage(w, r, http.StatusOK, data)
	}
}

// handlePostMolecule adds a molecule, or re-renders the form with the problem.
func (s *Server) handlePostMolecule() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m domain.Molecule
		for _, f := range formFields {
			m.Set(f, r.PostFormValue(f.Key()))
		}

		added, err := s.lib.Add(r.Context(), m)
		var verr *library.ValidationError
		switch {
		case errors.As(err, &verr):
			s.moleculesPage(w, r, http.StatusUnprocessableEntity, map[string]interface{}{
				"Error": "Veuillez corriger le formulaire : " + verr.Error(),
				"Form":  m,
			})
			return
		case err != nil:
			slog.Error("Error adding molecule", "error", err)
			s.moleculesPage(w, r, http.StatusInternalServerError, map[string]interface{}{
				"Error": "La molécule n'a pas pu être enregistrée.",
				"Form":  m,
			})
			return
		}
		http.Redirect(w, r, "/molecules?added="+url.QueryEscape(added.Name), http.StatusSeeOther)
	}
}

func (s *Server) quizPage(w http.ResponseWriter, status int, data map[string]interface{}) {
	data["Active"] = "quiz"
	data["Modes"] = quiz.Modes()
	data["Styles"] = quiz.Styles()
	data["Min"] = minQuestions
	data["Max"] = maxQuestions
	if _, ok := data["Count"]; !ok {
		data["Count"] = clampCount(s.opts.QuizCount)
	}
	s.render(w, status, "quiz_setup", data)
}

// handleGetQuiz renders the session setup form.
func (s *Server) handleGetQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.quizPage(w, http.StatusOK, map[string]interface{}{})
	}
}

func clampCount(n int) int {
	return min(max(n, minQuestions), maxQuestions)
}

func parseSetup(r *http.Request) (quiz.Mode, quiz.Style, error) {
	mode, err := quiz.ParseMode(r.PostFormValue("mode"))
	if err != nil {
		return "", "", err
	}
	style, err := quiz.ParseStyle(r.PostFormValue("style"))
	if err != nil {
		return "", "", err
	}
	return mode, style, nil
}

const blankAnswerError = "Saisissez au moins une réponse avant de valider."

const emptyStoreWarning = "Votre base est vide, ajoutez des molécules dans l'onglet « Ma base »."

// handlePostQuiz starts a session of shuffled questions.
func (s *Server) handlePostQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, style, err := parseSetup(r)
		if err != nil {
			s.quizPage(w, http.StatusBadRequest, map[string]interface{}{"Error": "Mode de révision inconnu."})
			return
		}
		count, err := strconv.Atoi(r.PostFormValue("count"))
		if err != nil {
			count = s.opts.QuizCount
		}
		count = clampCount(count)

		questions, err := s.lib.Quiz(r.Context(), mode, count)
		if err != nil {
			slog.Error("Error building quiz", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if len(questions) == 0 {
			s.quizPage(w, http.StatusOK, map[string]interface{}{"Warning": emptyStoreWarning, "Count": count})
			return
		}

		s.start(w, r, quiz.NewSession(questions, mode, style, s.now()))
	}
}

// handlePostRandomQuiz starts a one-question session on a random molecule.
// A judged random question asks from the name or the formula at random.
func (s *Server) handlePostRandomQuiz() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, style, err := parseSetup(r)
		if err != nil {
			s.quizPage(w, http.StatusBadRequest, map[string]interface{}{"Error": "Mode de révision inconnu."})
			return
		}
		if style == quiz.StyleJudge {
			mode = quiz.RandomPromptMode()
		}
		q, ok, err := s.lib.RandomQuestion(r.Context(), mode)
		if err != nil {
			slog.Error("Error drawing random question", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		if !ok {
			s.quizPage(w, http.StatusOK, map[string]interface{}{"Warning": emptyStoreWarning})
			return
		}
		s.start(w, r, quiz.NewSession([]quiz.Question{q}, mode, style, s.now()))
	}
}

func (s *Server) start(w http.ResponseWriter, r *http.Request, sess quiz.Session) {
	id := sessionID(w, r)
	s.sessions.put(id, sess)
	slog.Debug("Quiz session started", "mode", sess.Mode, "style", sess.Style, "questions", len(sess.Questions))
	http.Redirect(w, r, "/quiz/play", http.StatusSeeOther)
}

// answerInput is one free-text input of the judge form.
type answerInput struct {
	Key   string
	Label string
	Value string
}

func (s *Server) playPage(w http.ResponseWriter, status int, sess quiz.Session, answers map[domain.Field]string, notice string) {
	n, total := sess.Position()
	data := map[string]interface{}{
		"Error":    notice,
		"Active":   "quiz",
		"Session":  sess,
		"Number":   n,
		"Total":    total,
		"Elapsed":  sess.Elapsed(s.now()),
		"Judge":    sess.Style == quiz.StyleJudge,
		"Done":     sess.Done(),
		"Revealed": sess.Revealed,
		"Result":   sess.Last,
	}
	if q, ok := sess.Current(); ok {
		data["Question"] = q
		data["PromptLabel"] = q.PromptField.Label()
		inputs := make([]answerInput, 0, len(q.Expected))
		for _, e := range q.Expected {
			inputs = append(inputs, answerInput{
				Key:   "answer_" + e.Field.Key(),
				Label: e.Field.Label(),
				Value: answers[e.Field],
			})
		}
		data["Inputs"] = inputs
	}
	s.render(w, status, "quiz_play", data)
}

// handleGetPlay renders the current question, or the summary once done.
func (s *Server) handleGetPlay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := existingSessionID(r)
		if !ok {
			http.Redirect(w, r, "/quiz", http.StatusSeeOther)
			return
		}
		sess, ok := s.sessions.get(id)
		if !ok {
			http.Redirect(w, r, "/quiz", http.StatusSeeOther)
			return
		}
		s.playPage(w, http.StatusOK, sess, nil, "")
	}
}

// handlePostPlay applies a reveal, validate, next or stop action.
func (s *Server) handlePostPlay() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := existingSessionID(r)
		if !ok {
			http.Redirect(w, r, "/quiz", http.StatusSeeOther)
			return
		}
		sess, ok := s.sessions.get(id)
		if !ok {
			http.Redirect(w, r, "/quiz", http.StatusSeeOther)
			return
		}

		var answers map[domain.Field]string
		switch r.PostFormValue("action") {
		case "reveal":
			sess = sess.Reveal()
		case "validate":
			answers = make(map[domain.Field]string)
			blank := true
			if q, ok := sess.Current(); ok {
				for _, e := range q.Expected {
					answers[e.Field] = r.PostFormValue("answer_" + e.Field.Key())
					if strings.TrimSpace(answers[e.Field]) != "" {
						blank = false
					}
				}
			}
			if blank && !sess.Done() && sess.Last == nil {
				s.playPage(w, http.StatusUnprocessableEntity, sess, answers, blankAnswerError)
				return
			}
			sess, _ = sess.Submit(answers)
		case "next":
			sess = sess.Next()
		case "stop":
			s.sessions.delete(id)
			http.Redirect(w, r, "/quiz", http.StatusSeeOther)
			return
		default:
			http.Error(w, "Unknown action", http.StatusBadRequest)
			return
		}

		s.sessions.put(id, sess)
		if answers != nil {
			// Keep the typed answers visible next to the verdict.
			s.playPage(w, http.StatusOK, sess, answers, "")
			return
		}
		http.Redirect(w, r, "/quiz/play", http.StatusSeeOther)
	}
}

func (s *Server) transferPage(w http.ResponseWriter, status int, data map[string]interface{}) {
	data["Active"] = "transfer"
	s.render(w, status, "transfer", data)
}

// handleGetTransfer renders the import/export page.
func (s *Server) handleGetTransfer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.transferPage(w, http.StatusOK, map[string]interface{}{})
	}
}

// handleGetExport streams the whole record set as a download.
func (s *Server) handleGetExport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("format")
		if name == "" {
			name = string(tabular.CSV)
		}
		format, err := tabular.ParseFormat(name)
		if err != nil {
			http.Error(w, "Unknown export format", http.StatusBadRequest)
			return
		}

		var buf bytes.Buffer
		if err := s.lib.Export(r.Context(), &buf, format); err != nil {
			slog.Error("Error exporting molecules", "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="molecules.%s"`, format))
		buf.WriteTo(w)
	}
}

func importMessage(report library.ImportReport) string {
	return fmt.Sprintf("Import réussi ✅ : %d ajoutée(s), %d doublon(s) ignoré(s), %d ligne(s) sans nom.",
		report.Added, report.Duplicates, report.Skipped)
}

// handlePostImport merges an uploaded CSV or XLSX file.
func (s *Server) handlePostImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
		file, header, err := r.FormFile("file")
		if err != nil {
			s.transferPage(w, http.StatusBadRequest, map[string]interface{}{"Error": "Choisissez un fichier CSV ou XLSX."})
			return
		}
		defer file.Close()

		format, err := tabular.FormatFromName(header.Filename)
		if err != nil {
			s.transferPage(w, http.StatusBadRequest, map[string]interface{}{"Error": "Format non reconnu : utilisez un fichier .csv ou .xlsx."})
			return
		}

		report, err := s.lib.Import(r.Context(), file, format)
		if err != nil {
			slog.Warn("Import failed", "file", header.Filename, "error", err)
			s.transferPage(w, http.StatusUnprocessableEntity, map[string]interface{}{"Error": "Erreur lors de l'import : " + err.Error()})
			return
		}
		s.transferPage(w, http.StatusOK, map[string]interface{}{"Flash": importMessage(report)})
	}
}

// handlePostImportSource merges a local path or a git repository.
func (s *Server) handlePostImportSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := r.PostFormValue("source")
		if source == "" {
			s.transferPage(w, http.StatusBadRequest, map[string]interface{}{"Error": "Indiquez un chemin ou une URL git."})
			return
		}

		report, err := importer.ImportSource(r.Context(), s.lib, source, s.opts.ReposDir)
		if err != nil {
			slog.Warn("Source import failed", "source", source, "error", err)
			s.transferPage(w, http.StatusUnprocessableEntity, map[string]interface{}{"Error": "Erreur lors de l'import : " + err.Error()})
			return
		}
		s.transferPage(w, http.StatusOK, map[string]interface{}{"Flash": importMessage(report)})
	}
}
