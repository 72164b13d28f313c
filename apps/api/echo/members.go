package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admin"
	"github.com/amork0112-rgb/frageedu/core/audit"
	"github.com/amork0112-rgb/frageedu/core/entrance"
	"github.com/amork0112-rgb/frageedu/core/user"
)

var errMemberNotFound = &core.NotFoundError{Detail: "Member not found"}

func (s *server) registerMembersAPI(g *echo.Group) {
	manage := s.adminMiddleware(admin.PermManageMembers)
	g.GET("/members", s.queryMembers, manage)
	g.GET("/members/:id", s.memberDetail, manage)
	g.POST("/members/:id/reset-password", s.resetMemberPassword, manage)
	g.PATCH("/members/:id/status", s.setMemberStatus, manage)
	g.POST("/members/bulk/export", s.exportMembers, s.adminMiddleware(admin.PermExportMembers))
	g.POST("/members/bulk/notify", s.notifyMembers, s.adminMiddleware(admin.PermNotifyMembers))

	students := s.adminMiddleware(admin.PermViewStudent)
	g.GET("/students", s.queryStudents, students)
	g.GET("/student-management", s.queryStudents, students)
}

// memberScope returns the branches adm is restricted to, nil when adm sees every member.
func memberScope(adm admin.Admin) []string {
	allowed := adm.AllowedBranches()
	if len(allowed) == len(entrance.AllBranches) {
		return nil
	}
	return allowed
}

func inScope(scope []string, usr user.User) bool {
	return scope == nil || core.StringInSlice(usr.Branch, scope)
}

// scopedMember loads the member id; members outside adm's branches do not exist for adm.
func (s *server) scopedMember(ctx echo.Context, adm admin.Admin, id string) (user.User, error) {
	usr, err := s.UserSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return user.User{}, err
	}
	if !inScope(memberScope(adm), usr) {
		return user.User{}, errMemberNotFound
	}
	return usr, nil
}

// scopedIDs drops the ids adm may not act upon.
func (s *server) scopedIDs(ctx echo.Context, adm admin.Admin, ids []string) ([]string, error) {
	scope := memberScope(adm)
	if scope == nil {
		return ids, nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		usr, err := s.UserSvc.GetByID(ctx.Request().Context(), id)
		if core.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "getting member")
		}
		if inScope(scope, usr) {
			out = append(out, id)
		}
	}
	return out, nil
}

// Handlers

func (s *server) queryMembers(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	var filter user.QueryFilter
	if err = ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to user.QueryFilter")
	}
	filter.Branches = memberScope(adm)

	users, page, err := s.UserSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying members")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"members": users, "pagination": page})
}

func (s *server) memberDetail(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	usr, err := s.scopedMember(ctx, adm, ctx.Param("id"))
	if err != nil {
		return err
	}
	detail, err := s.UserSvc.Detail(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting member detail")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (s *server) resetMemberPassword(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	usr, err := s.scopedMember(ctx, adm, ctx.Param("id"))
	if err != nil {
		return err
	}
	usr, pwd, err := s.UserSvc.ResetToTemporaryPassword(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "resetting member password")
	}
	s.audit(ctx, adm, audit.ActionResetPassword, usr.ID, usr.Email)
	return ctx.JSON(http.StatusOK, TemporaryPasswordResponse{
		Message:           "Password reset successfully",
		TemporaryPassword: pwd,
	})
}

func (s *server) setMemberStatus(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	var data user.StatusUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to user.StatusUpdate")
	}
	if err = data.Validate(s.Validate); err != nil {
		return err
	}
	usr, err := s.scopedMember(ctx, adm, ctx.Param("id"))
	if err != nil {
		return err
	}

	prev := usr.Status
	if usr, err = s.UserSvc.SetStatus(ctx.Request().Context(), usr.ID, data.Status); err != nil {
		return errors.Wrap(err, "setting member status")
	}
	s.audit(ctx, adm, audit.ActionStatusChange, usr.ID, prev+" -> "+usr.Status)
	return ctx.JSON(http.StatusOK, usr)
}

// bindIDs accepts either a bare JSON array of member ids or {"user_ids": [...]}.
func bindIDs(ctx echo.Context) ([]string, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(ctx.Request().Body).Decode(&raw); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "A list of member ids is required").SetInternal(err)
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		var obj struct {
			UserIDs []string `json:"user_ids"`
		}
		if err = json.Unmarshal(raw, &obj); err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "A list of member ids is required").SetInternal(err)
		}
		ids = obj.UserIDs
	}
	return ids, nil
}

func (s *server) exportMembers(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	ids, err := bindIDs(ctx)
	if err != nil {
		return err
	}
	if ids, err = s.scopedIDs(ctx, adm, ids); err != nil {
		return err
	}

	content, err := s.UserSvc.ExportCSV(ctx.Request().Context(), ids)
	if err != nil {
		return errors.Wrap(err, "exporting members")
	}
	s.audit(ctx, adm, audit.ActionBulkExport, "", fmt.Sprintf("%d members", len(ids)))
	return ctx.JSON(http.StatusOK, ExportResponse{CSVContent: content})
}

func (s *server) notifyMembers(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	var data user.NotifyRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to user.NotifyRequest")
	}
	if err = data.Validate(s.Validate); err != nil {
		return err
	}
	ids, err := s.scopedIDs(ctx, adm, data.UserIDs)
	if err != nil {
		return err
	}

	sent, err := s.UserSvc.Notify(ctx.Request().Context(), ids, data.Message)
	if err != nil {
		return errors.Wrap(err, "notifying members")
	}
	s.audit(ctx, adm, audit.ActionBulkNotify, "", fmt.Sprintf("%d of %d members", sent, len(data.UserIDs)))
	return ctx.JSON(http.StatusOK, NotifyResponse{Message: "Notification sent", Sent: sent})
}

// queryStudents lists students within the admin's branches, optionally narrowed to one of them.
func (s *server) queryStudents(ctx echo.Context) error {
	adm, err := getContextAdmin(ctx)
	if err != nil {
		return err
	}
	var q StudentsQuery
	if err = ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to StudentsQuery")
	}

	allowed := adm.AllowedBranches()
	filter := user.QueryFilter{
		Query:    q.Search,
		Page:     q.Page,
		PageSize: q.Limit,
		Sort:     "studentName",
		Branches: memberScope(adm),
	}
	if bf := core.CleanString(q.BranchFilter, true /* lower */); bf != "" && bf != "all" {
		if !core.StringInSlice(bf, allowed) {
			return errHttpForbidden
		}
		filter.Branch = bf
	}

	users, page, err := s.UserSvc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	rows := make([]StudentRow, 0, len(users))
	for _, usr := range users {
		rows = append(rows, StudentRow{
			ID:             usr.ID,
			Name:           usr.StudentName,
			Branch:         usr.Branch,
			ParentName:     usr.ParentName,
			Email:          usr.Email,
			Phone:          usr.Phone,
			Status:         usr.Status,
			HouseholdToken: usr.HouseholdToken,
		})
	}
	return ctx.JSON(http.StatusOK, StudentsResponse{
		Students:        rows,
		AllowedBranches: allowed,
		UserPermissions: adm.Permissions(),
		Pagination:      page,
	})
}
