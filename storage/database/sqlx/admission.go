package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/amork0112-rgb/frageedu/core"
	"github.com/amork0112-rgb/frageedu/core/admission"
)

const admissionColumns = `household_token, consent_status, forms_status, guides_status, checklist_status,
	consent_data, forms_data, guides_data, checklist_data, updated_at`

type admissionRow struct {
	HouseholdToken  string    `db:"household_token"`
	ConsentStatus   string    `db:"consent_status"`
	FormsStatus     string    `db:"forms_status"`
	GuidesStatus    string    `db:"guides_status"`
	ChecklistStatus string    `db:"checklist_status"`
	ConsentData     null.JSON `db:"consent_data"`
	FormsData       null.JSON `db:"forms_data"`
	GuidesData      null.JSON `db:"guides_data"`
	ChecklistData   null.JSON `db:"checklist_data"`
	UpdatedAt       time.Time `db:"updated_at"`
}

type admissionRepository struct {
	baseRepository
}

var _ admission.Repository = (*admissionRepository)(nil)

func NewAdmissionRepository(exec core.DBExecutor) admission.Repository {
	return &admissionRepository{baseRepository{exec: exec}}
}

func encodeData(d admission.Data) (null.JSON, error) {
	if d == nil {
		d = admission.Data{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return null.JSON{}, err
	}
	return null.JSONFrom(b), nil
}

func decodeData(j null.JSON) (admission.Data, error) {
	d := admission.Data{}
	if !j.Valid || len(j.JSON) == 0 {
		return d, nil
	}
	err := json.Unmarshal(j.JSON, &d)
	return d, err
}

func (repo admissionRepository) toRow(adm admission.Admission) (admissionRow, error) {
	row := admissionRow{
		HouseholdToken:  adm.HouseholdToken,
		ConsentStatus:   string(adm.ConsentStatus),
		FormsStatus:     string(adm.FormsStatus),
		GuidesStatus:    string(adm.GuidesStatus),
		ChecklistStatus: string(adm.ChecklistStatus),
		UpdatedAt:       adm.UpdatedAt.UTC(),
	}
	var err error
	if row.ConsentData, err = encodeData(adm.ConsentData); err != nil {
		return row, err
	}
	if row.FormsData, err = encodeData(adm.FormsData); err != nil {
		return row, err
	}
	if row.GuidesData, err = encodeData(adm.GuidesData); err != nil {
		return row, err
	}
	row.ChecklistData, err = encodeData(adm.ChecklistData)
	return row, err
}

func (repo admissionRepository) fromRow(row admissionRow) (admission.Admission, error) {
	adm := admission.Admission{
		HouseholdToken:  row.HouseholdToken,
		ConsentStatus:   admission.Status(row.ConsentStatus),
		FormsStatus:     admission.Status(row.FormsStatus),
		GuidesStatus:    admission.Status(row.GuidesStatus),
		ChecklistStatus: admission.Status(row.ChecklistStatus),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
	var err error
	if adm.ConsentData, err = decodeData(row.ConsentData); err != nil {
		return adm, err
	}
	if adm.FormsData, err = decodeData(row.FormsData); err != nil {
		return adm, err
	}
	if adm.GuidesData, err = decodeData(row.GuidesData); err != nil {
		return adm, err
	}
	adm.ChecklistData, err = decodeData(row.ChecklistData)
	return adm, err
}

func (repo admissionRepository) CreateAdmission(
	ctx context.Context,
	adm admission.Admission,
	exec ...core.DBExecutor,
) (admission.Admission, error) {
	row, err := repo.toRow(adm)
	if err != nil {
		return admission.Admission{}, errors.Wrap(err, "encoding admission")
	}
	q := `INSERT INTO "admission_data" (` + admissionColumns + `) VALUES (:household_token, :consent_status,
		:forms_status, :guides_status, :checklist_status, :consent_data, :forms_data, :guides_data, :checklist_data,
		:updated_at)`
	if _, err = sqlxNamedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return admission.Admission{}, errors.Wrap(err, "inserting admission")
	}
	return adm, nil
}

func (repo admissionRepository) GetAdmission(
	ctx context.Context,
	householdToken string,
	exec ...core.DBExecutor,
) (admission.Admission, error) {
	if !isUUID(householdToken) {
		return admission.Admission{}, admission.ErrNotFound
	}

	var row admissionRow
	q := `SELECT ` + admissionColumns + ` FROM "admission_data" WHERE household_token = $1`
	if err := repo.getExec(exec).GetContext(ctx, &row, q, householdToken); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return admission.Admission{}, admission.ErrNotFound
		}
		return admission.Admission{}, errors.Wrap(err, "getting admission")
	}
	adm, err := repo.fromRow(row)
	return adm, errors.Wrap(err, "decoding admission")
}

func (repo admissionRepository) UpdateAdmission(
	ctx context.Context,
	adm admission.Admission,
	exec ...core.DBExecutor,
) (admission.Admission, error) {
	row, err := repo.toRow(adm)
	if err != nil {
		return admission.Admission{}, errors.Wrap(err, "encoding admission")
	}
	q := `UPDATE "admission_data" SET consent_status = :consent_status, forms_status = :forms_status,
		guides_status = :guides_status, checklist_status = :checklist_status, consent_data = :consent_data,
		forms_data = :forms_data, guides_data = :guides_data, checklist_data = :checklist_data,
		updated_at = :updated_at WHERE household_token = :household_token`
	res, err := sqlxNamedExec(ctx, repo.getExec(exec), q, row)
	if err != nil {
		return admission.Admission{}, errors.Wrap(err, "updating admission")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return admission.Admission{}, admission.ErrNotFound
	}
	return adm, nil
}
