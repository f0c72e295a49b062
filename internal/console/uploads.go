package console

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"housingadmin/console/internal/models"
	"housingadmin/console/internal/resource"
	"housingadmin/console/internal/storage"
	"housingadmin/console/internal/validation"
)

// Geocoder resolves an address to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lng float64, err error)
}

// FailureRecorder keeps skipped uploads so they can be listed later.
type FailureRecorder interface {
	RecordUploadFailure(ctx context.Context, resource, file, reason string) error
}

// Uploads builds the prepare steps that run between validation and submit.
type Uploads struct {
	Images    *storage.Batch
	Documents *storage.Batch
	Geocoder  Geocoder
	Failures  FailureRecorder
	Logger    *logrus.Logger
}

func (u *Uploads) logger() *logrus.Logger {
	if u.Logger == nil {
		return logrus.StandardLogger()
	}
	return u.Logger
}

func (u *Uploads) record(ctx context.Context, kind string, failures []storage.Failure) {
	if u.Failures == nil {
		return
	}
	for _, f := range failures {
		if err := u.Failures.RecordUploadFailure(ctx, kind, f.Name, f.Reason()); err != nil {
			u.logger().WithError(err).WithField("file", f.Name).Error("Failed to record upload failure")
		}
	}
}

// Property geocodes a draft without coordinates, then uploads its new photos
// into the owner's folder. Skipped files are appended to skipped.
func (u *Uploads) Property(skipped *[]storage.Failure) resource.PrepareFunc[PropertyDraft] {
	return func(ctx context.Context, d *PropertyDraft) error {
		if u.Geocoder != nil && !d.HasLocation() && strings.TrimSpace(d.Address) != "" {
			u.geocode(ctx, d)
		}
		if len(d.Files) == 0 {
			return nil
		}

		result := u.Images.UploadAll(ctx, d.UserID, d.Files)
		for _, up := range result.Uploaded {
			d.Photos = append(d.Photos, models.Photo{Name: up.Name, URL: up.URL})
		}
		d.Files = nil
		u.record(ctx, PropertyKind.Name, result.Failures)
		if skipped != nil {
			*skipped = append(*skipped, result.Failures...)
		}
		return nil
	}
}

func (u *Uploads) geocode(ctx context.Context, d *PropertyDraft) {
	lat, lng, err := u.Geocoder.Geocode(ctx, d.Address)
	if err != nil {
		u.logger().WithError(err).WithField("address", d.Address).Warn("Geocoding failed, submitting without coordinates")
		return
	}
	d.Latitude = formatCoord(lat)
	d.Longitude = formatCoord(lng)
}

// Listing uploads new images into a folder named after the title.
func (u *Uploads) Listing(skipped *[]storage.Failure) resource.PrepareFunc[ListingDraft] {
	return func(ctx context.Context, d *ListingDraft) error {
		if len(d.Files) == 0 {
			return nil
		}
		result := u.Images.UploadAll(ctx, d.Title, d.Files)
		for _, up := range result.Uploaded {
			d.Images = append(d.Images, up.URL)
		}
		d.Files = nil
		u.record(ctx, ListingKind.Name, result.Failures)
		if skipped != nil {
			*skipped = append(*skipped, result.Failures...)
		}
		return nil
	}
}

// Report uploads the single document. A report cannot exist without it, so
// a failed upload becomes a field error instead of being skipped.
func (u *Uploads) Report() resource.PrepareFunc[ReportDraft] {
	return func(ctx context.Context, d *ReportDraft) error {
		if d.File == nil {
			return nil
		}
		up, err := u.Documents.UploadOne(ctx, d.Title, *d.File)
		if err != nil {
			u.logger().WithError(err).WithField("file", d.File.Name).Warn("Report document upload failed")
			u.record(ctx, ReportKind.Name, []storage.Failure{{Name: d.File.Name, Err: err}})
			return validation.FieldErrors{"document": err.Error()}
		}
		d.Document = models.Document{Name: up.Name, URL: up.URL, FileType: up.ContentType}
		d.File = nil
		return nil
	}
}
