package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"bitbucket.org/pratesvistorias/vistorias_backend/models"
	"bitbucket.org/pratesvistorias/vistorias_backend/utils"
	"bitbucket.org/pratesvistorias/vistorias_backend/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps workflow/model errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
		return
	}

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, models.ErrorDuplicatePeriod),
		errors.Is(err, workflow.ErrorClosureBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

/* auth */

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	info, err := models.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func meHandler(c *gin.Context) {
	user, err := models.Me(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, user)
}

/* users */

func listUsersHandler(c *gin.Context) {
	users, err := models.GetUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func createUserHandler(c *gin.Context) {
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	user, err := models.CreateUser(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func updateUserHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewUser
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	user, err := models.UpdateUser(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func deleteUserHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	user, err := models.DeleteUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

/* agencies */

func listAgenciesHandler(c *gin.Context) {
	agencies, err := models.GetAgencies(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agencies)
}

func getAgencyHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	agency, err := models.GetAgency(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agency)
}

func createAgencyHandler(c *gin.Context) {
	var input models.NewAgency
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	agency, err := models.CreateAgency(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, agency)
}

func updateAgencyHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewAgency
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	agency, err := models.UpdateAgency(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agency)
}

func deleteAgencyHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	agency, err := models.DeleteAgency(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agency)
}

type toggleActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func toggleAgencyHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req toggleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	agency, err := models.ToggleActiveAgency(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agency)
}

func agencyPriceTablesHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	rows, err := models.GetPriceTablesByAgency(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

/* inspectors */

func listInspectorsHandler(c *gin.Context) {
	inspectors, err := models.GetInspectors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspectors)
}

func getInspectorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	inspector, err := models.GetInspector(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspector)
}

func createInspectorHandler(c *gin.Context) {
	var input models.NewInspector
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	inspector, err := models.CreateInspector(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, inspector)
}

func updateInspectorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewInspector
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	inspector, err := models.UpdateInspector(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspector)
}

func deleteInspectorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	inspector, err := models.DeleteInspector(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspector)
}

func toggleInspectorHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req toggleActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	inspector, err := models.ToggleActiveInspector(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inspector)
}

func inspectorPayoutTablesHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	rows, err := models.GetPayoutTablesByInspector(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

/* rate tables */

func createPriceTableHandler(c *gin.Context) {
	var input models.NewPriceTable
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	row, err := models.CreatePriceTable(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func updatePriceTableHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewPriceTable
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	row, err := models.UpdatePriceTable(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func deletePriceTableHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	row, err := models.DeletePriceTable(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func createPayoutTableHandler(c *gin.Context) {
	var input models.NewPayoutTable
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	row, err := models.CreatePayoutTable(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

func updatePayoutTableHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewPayoutTable
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	row, err := models.UpdatePayoutTable(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func deletePayoutTableHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	row, err := models.DeletePayoutTable(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

/* service types */

func listServiceTypesHandler(c *gin.Context) {
	serviceTypes, err := models.GetServiceTypes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, serviceTypes)
}

func createServiceTypeHandler(c *gin.Context) {
	var input models.NewServiceType
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	serviceType, err := models.CreateServiceType(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, serviceType)
}

func updateServiceTypeHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewServiceType
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	serviceType, err := models.UpdateServiceType(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, serviceType)
}

func deleteServiceTypeHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	serviceType, err := models.DeleteServiceType(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, serviceType)
}

/* area bands */

func listAreaBandsHandler(c *gin.Context) {
	bands, err := models.GetAreaBands(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bands)
}

func createAreaBandHandler(c *gin.Context) {
	var input models.NewAreaBand
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	band, err := models.CreateAreaBand(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, band)
}

func updateAreaBandHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.NewAreaBand
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	band, err := models.UpdateAreaBand(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, band)
}

func deleteAreaBandHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	band, err := models.DeleteAreaBand(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, band)
}

/* closures */

func listClosuresHandler(c *gin.Context) {
	var filter models.ClosureFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, err)
		return
	}
	page, err := models.GetClosurePeriods(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func getClosureHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	period, err := models.GetClosurePeriod(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

func createClosureHandler(c *gin.Context) {
	var input models.NewClosurePeriod
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	period, err := models.CreateClosurePeriod(c.Request.Context(), &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, period)
}

type closureStatusRequest struct {
	Status models.ClosureStatus `json:"status" binding:"required"`
}

func updateClosureStatusHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var req closureStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, err)
		return
	}
	period, err := models.UpdateClosureStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

func deleteClosureHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	period, err := models.DeleteClosurePeriod(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, period)
}

func closureSummaryHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	summary, err := models.GetClosureSummary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func closureInspectionsHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var filter models.InspectionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondError(c, err)
		return
	}
	page, err := models.GetClosureInspections(c.Request.Context(), id, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func readUploadedSpreadsheet(c *gin.Context) ([]byte, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, errors.New("file is required")
	}
	opened, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer opened.Close()
	return io.ReadAll(opened)
}

func importClosureHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	data, err := readUploadedSpreadsheet(c)
	if err != nil {
		respondError(c, err)
		return
	}

	if strings.EqualFold(c.Query("async"), "true") {
		job, err := workflow.EnqueueJob(c.Request.Context(), id, models.JobKindImport, data)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, job)
		return
	}

	ctx, span := tracer.Start(c.Request.Context(), "closure.import")
	defer span.End()
	result, err := workflow.ImportSpreadsheet(ctx, id, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func calculateClosureHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}

	if strings.EqualFold(c.Query("async"), "true") {
		job, err := workflow.EnqueueJob(c.Request.Context(), id, models.JobKindCalculate, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, job)
		return
	}

	ctx, span := tracer.Start(c.Request.Context(), "closure.calculate")
	defer span.End()
	result, err := workflow.CalculateClosure(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func exportClosureHandler(export func(ctx context.Context, id int) ([]byte, error), filename string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c)
		if !ok {
			return
		}
		data, err := export(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-%d.xlsx", filename, id))
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	}
}

/* inspections */

func getInspectionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	record, err := models.GetInspection(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func updateInspectionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input models.UpdateInspectionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, err)
		return
	}
	record, err := models.UpdateInspection(c.Request.Context(), id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func recalculateInspectionHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	record, err := workflow.RecalculateInspection(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

/* jobs */

func getJobHandler(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	job, err := models.GetJobRun(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, job)
}
