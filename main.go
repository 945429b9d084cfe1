package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"time"

	"clubledger/database"
	"clubledger/filestore"
	"clubledger/handlers"
	"clubledger/middleware"
	"clubledger/security"

	"github.com/gorilla/mux"
)

func main() {
	migrateOnly := flag.Bool("migrate-only", false, "Run migrations and exit")
	flag.Parse()

	encryptionKey := os.Getenv("ENCRYPTION_KEY")
	if encryptionKey == "" {
		log.Println("Warning: ENCRYPTION_KEY not set, using a default key. This is NOT secure for production!")
		encryptionKey = "default-key-for-development-only"
	}
	security.InitializeEncryption(encryptionKey)

	if err := database.InitDB(); err != nil {
		log.Fatal(err)
	}

	if err := database.RunMigrations(); err != nil {
		log.Fatal(err)
	}

	if *migrateOnly {
		log.Println("Migrations completed. Exiting.")
		return
	}

	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "./uploads"
	}
	if err := filestore.Init(uploadDir); err != nil {
		log.Fatal(err)
	}

	log.Println("Initializing Firebase Admin SDK...")
	if err := middleware.InitializeFirebase(); err != nil {
		log.Printf("Warning: Failed to initialize Firebase: %v", err)
		log.Println("Auth token verification will be disabled!")
	}

	r := mux.NewRouter()
	r.Use(middleware.EnableCORS)

	// Register routes with both direct paths and /api prefix to maintain
	// compatibility with older frontend builds.
	registerRoutes(r)
	registerRoutes(r.PathPrefix("/api").Subrouter())

	// Uploaded receipt images, evidence files and attachments.
	fs := http.FileServer(http.Dir(uploadDir))
	r.PathPrefix("/media/").Handler(http.StripPrefix("/media/", fs))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Handler:      r,
		Addr:         ":" + port,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	log.Printf("Starting server on port %s...", port)
	log.Fatal(srv.ListenAndServe())
}

// registerRoutes sets up all API routes
func registerRoutes(r *mux.Router) {
	// Public routes (no auth required)
	r.HandleFunc("/health", handlers.HealthCheck).Methods("GET", "OPTIONS")

	// Authenticated routes
	protected := r.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)

	// Transactions
	protected.HandleFunc("/transactions", handlers.GetTransactions).Methods("GET")
	protected.HandleFunc("/transactions", handlers.AddTransaction).Methods("POST")
	protected.HandleFunc("/transactions/with-receipt", handlers.CreateTransactionWithReceipt).Methods("POST")
	protected.HandleFunc("/transactions/{id:[0-9]+}", handlers.GetTransaction).Methods("GET")
	protected.HandleFunc("/transactions/{id:[0-9]+}", handlers.UpdateTransaction).Methods("PUT", "PATCH")
	protected.HandleFunc("/transactions/{id:[0-9]+}", handlers.DeleteTransaction).Methods("DELETE")
	protected.HandleFunc("/transactions/{id:[0-9]+}/evidences", handlers.EvidenceFiles).Methods("GET", "POST")
	protected.HandleFunc("/transactions/{id:[0-9]+}/evidences/{evidenceId:[0-9]+}", handlers.DeleteEvidence).Methods("DELETE")

	// Receipts
	protected.HandleFunc("/receipts", handlers.UploadReceipt).Methods("POST")
	protected.HandleFunc("/receipts/{id:[0-9]+}", handlers.DeleteReceipt).Methods("DELETE")
	protected.HandleFunc("/receipts/transaction/{transactionId:[0-9]+}", handlers.DeleteReceiptsByTransaction).Methods("DELETE")
	protected.HandleFunc("/receipts/preview/{transactionId:[0-9]+}", handlers.PreviewReceipt).Methods("GET")

	// Bank-statement ingestion and membership-fee matching
	protected.HandleFunc("/upload", handlers.UploadStatement).Methods("POST")
	protected.HandleFunc("/check-membership-payment", handlers.CheckMembershipPayment).Methods("POST")

	// Members
	protected.HandleFunc("/members", handlers.GetMembers).Methods("GET")
	protected.HandleFunc("/members", handlers.CreateMember).Methods("POST")
	protected.HandleFunc("/members/{id:[0-9]+}", handlers.GetMember).Methods("GET")
	protected.HandleFunc("/members/{id:[0-9]+}", handlers.UpdateMember).Methods("PATCH")
	protected.HandleFunc("/members/{id:[0-9]+}", handlers.DeleteMember).Methods("DELETE")

	// Calendar
	protected.HandleFunc("/calendar", handlers.CalendarData).Methods("GET")

	// Notices
	protected.HandleFunc("/notices", handlers.Notices).Methods("GET", "POST")
	protected.HandleFunc("/notices/check-new", handlers.CheckNewNotices).Methods("GET")
	protected.HandleFunc("/notices/mark-seen", handlers.MarkNoticesSeen).Methods("POST")
	protected.HandleFunc("/notices/{id:[0-9]+}", handlers.NoticeDetail).Methods("GET", "PUT", "DELETE")

	// Audit comments (owner and auditors)
	protected.HandleFunc("/audit/comments/{transactionId:[0-9]+}", handlers.AuditComments).Methods("GET", "POST")
	protected.HandleFunc("/audit/comment/{id:[0-9]+}", handlers.EditComment).Methods("PUT")
	protected.HandleFunc("/audit/comment/{id:[0-9]+}", handlers.DeleteComment).Methods("DELETE")
	protected.HandleFunc("/audit/comments-summary", handlers.AuditCommentSummary).Methods("GET")

	// Statistics open to club treasurers
	protected.HandleFunc("/audit/my-club/statistics", handlers.MyClubStatistics).Methods("GET")
	protected.HandleFunc("/audit/my-club/monthly-summary", handlers.MyClubMonthlySummary).Methods("GET")
	protected.HandleFunc("/audit/monthly-expense/{club}", handlers.MonthlyExpenseByClub).Methods("GET")

	// Users
	protected.HandleFunc("/users/sync", handlers.SyncUser).Methods("POST")
	protected.HandleFunc("/users/me", handlers.GetMe).Methods("GET")

	// Auditor-only routes
	audit := protected.PathPrefix("/audit").Subrouter()
	audit.Use(middleware.RequireAuditor)
	audit.HandleFunc("/transactions", handlers.AuditTransactions).Methods("GET")
	audit.HandleFunc("/transactions/{id:[0-9]+}/review_status", handlers.UpdateReviewStatus).Methods("PATCH")
	audit.HandleFunc("/receipts", handlers.AuditReceipts).Methods("GET")
	audit.HandleFunc("/clubs", handlers.ClubList).Methods("GET")
	audit.HandleFunc("/statistics-by-club", handlers.StatisticsByClub).Methods("GET")
	audit.HandleFunc("/dashboard-summary", handlers.DashboardSummary).Methods("GET")
}
