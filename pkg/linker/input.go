package linker

import (
	"fmt"
	"os"
	"path/filepath"

	"armld/pkg/utils"
)

func ReadInputFiles(ctx *Context, remaining []string) {
	for _, arg := range remaining {
		var ok bool

		if arg, ok = utils.RemovePrefix(arg, "-l"); ok {
			ReadFile(ctx, FindLibrary(ctx, arg))
		} else {
			ReadFile(ctx, MustNewFile(arg))
		}
	}
}

// FindLibrary resolves a bare "-lfoo" into libfoo.a on one of the
// configured search paths, matching the teacher's ContextArgs.LibraryPaths.
func FindLibrary(ctx *Context, name string) *File {
	for _, dir := range ctx.Args.LibraryPaths {
		path := filepath.Join(dir, fmt.Sprintf("lib%s.a", name))
		if _, err := os.Stat(path); err == nil {
			return MustNewFile(path)
		}
	}
	utils.Fatal(fmt.Sprintf("library not found: -l%s", name))
	return nil
}

func ReadFile(ctx *Context, file *File) {
	ft := GetFileType(file.Contents)

	switch ft {
	case FileTypeObject:
		ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, file, false))
	case FileTypeArchive:
		for _, child := range ReadArchiveMembers(file) {
			utils.Assert(GetFileType(child.Contents) == FileTypeObject)
			ctx.Objs = append(ctx.Objs, CreateObjectFile(ctx, child, true))
		}
	default:
		utils.Fatal("unknown file type: " + file.Name)
	}
}

func CreateObjectFile(ctx *Context, file *File, inLib bool) *ObjectFile {
	mt := GetMachineTypeFromContext(file.Contents)
	if mt != MachineTypeARM {
		utils.Fatal("incompatible file type: " + file.Name)
	}

	obj := NewObjectFile(file, !inLib)
	obj.Priority = len(ctx.Objs) + 1
	obj.Parse(ctx)

	return obj
}
